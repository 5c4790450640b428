package store

import (
	"time"

	"github.com/sakif/stash/internal/model"
)

// SampleItems returns the canned development dataset. Pass it as
// Options.FallbackItems in dev builds so the item screens have content when
// the backend is unreachable. Production wiring leaves FallbackItems nil.
func SampleItems() []model.Item {
	sharedAt := time.Date(2023, 7, 16, 10, 30, 0, 0, time.UTC)
	return []model.Item{
		{
			ID:        "1",
			Kind:      model.KindLink,
			Title:     "React Native Documentation",
			URL:       "https://reactnative.dev/docs/getting-started",
			ImageURL:  "https://reactnative.dev/img/header_logo.svg",
			CreatedAt: time.Date(2023, 6, 15, 10, 30, 0, 0, time.UTC),
			IsSaved:   true,
		},
		{
			ID:        "2",
			Kind:      model.KindNote,
			Title:     "Project Ideas",
			Content:   "Build a mobile app for tracking daily habits and goals. Include features like reminders, progress tracking, and data visualization.",
			CreatedAt: time.Date(2023, 6, 20, 14, 45, 0, 0, time.UTC),
			IsShared:  true,
		},
		{
			ID:        "4",
			Kind:      model.KindLink,
			Title:     "JavaScript Best Practices",
			URL:       "https://developer.mozilla.org/en-US/docs/Web/JavaScript/Guide",
			CreatedAt: time.Date(2023, 7, 2, 16, 20, 0, 0, time.UTC),
		},
		{
			ID:        "5",
			Kind:      model.KindNote,
			Title:     "Meeting Notes",
			Content:   "Discussed project timeline and deliverables. Key points: 1) Launch MVP by end of month, 2) Focus on core features first, 3) Schedule weekly progress reviews.",
			CreatedAt: time.Date(2023, 7, 10, 11, 0, 0, 0, time.UTC),
			IsSaved:   true,
			IsShared:  true,
		},
		{
			ID:           "6",
			Kind:         model.KindLink,
			Title:        "UI Design Trends 2023",
			URL:          "https://uxdesign.cc/ui-design-trends-for-2023-a-definitive-guide-68bcc1d55235",
			ImageURL:     "https://miro.medium.com/max/1400/0*7KFOZKmEUIppOQxH",
			CreatedAt:    time.Date(2023, 7, 15, 8, 45, 0, 0, time.UTC),
			SharedWithMe: true,
			SharedBy:     &model.User{ID: "user1", Name: "Alex Johnson"},
			SharedAt:     &sharedAt,
		},
	}
}

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/auth"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/remote"
	"github.com/sakif/stash/internal/repository"
)

// AuthHandler serves the session lifecycle: email/password sign-up and
// sign-in, token refresh, sign-out, session introspection, and the optional
// GitHub OAuth flow.
type AuthHandler struct {
	accounts  repository.AccountRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	github    *auth.GitHubProvider // nil when OAuth is not configured
	logger    *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil; the OAuth
// routes are only registered when it isn't.
func NewAuthHandler(
	accounts repository.AccountRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	github *auth.GitHubProvider,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts:  accounts,
		tokens:    tokens,
		passwords: passwords,
		github:    github,
		logger:    logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// sessionInfo is the response of GET /auth/session: the resolved identity
// without tokens. Clients already hold their tokens; this endpoint only
// confirms they still resolve to an account.
type sessionInfo struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// HandleSignUp registers an account and signs it in.
//
// HTTP: POST /auth/signup
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, apperror.ValidationFailed("email", "a valid email is required"))
		return
	}
	if len(req.Password) < 8 {
		writeError(w, apperror.ValidationFailed("password", "password must be at least 8 characters"))
		return
	}

	hash, err := h.passwords.Hash(req.Password)
	if err != nil {
		writeError(w, apperror.ValidationFailed("password", "password must be 72 bytes or fewer"))
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		// Default the display name to the mailbox part of the email.
		name = strings.SplitN(req.Email, "@", 2)[0]
	}

	account := &model.Account{
		Email:        req.Email,
		Name:         name,
		PasswordHash: hash,
	}
	if err := h.accounts.Create(r.Context(), account); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("account created", slog.String("accountID", account.ID))
	h.writeSession(w, http.StatusCreated, account)
}

// HandleSignIn authenticates with email and password.
//
// HTTP: POST /auth/signin
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))

	// One message for both unknown email and wrong password — the response
	// must not reveal which half failed.
	account, err := h.accounts.GetByEmail(r.Context(), email)
	if err != nil || h.passwords.Verify(account.PasswordHash, req.Password) != nil {
		writeError(w, apperror.Unauthenticated("Invalid email or password"))
		return
	}

	h.logger.Info("signed in", slog.String("accountID", account.ID))
	h.writeSession(w, http.StatusOK, account)
}

// HandleRefresh exchanges a refresh token for a fresh token pair.
//
// HTTP: POST /auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	accountID, err := h.tokens.ValidateRefresh(req.RefreshToken)
	if err != nil {
		writeError(w, apperror.Unauthenticated("invalid or expired refresh token"))
		return
	}

	account, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		writeError(w, apperror.Unauthenticated("account no longer exists"))
		return
	}

	h.writeSession(w, http.StatusOK, account)
}

// HandleSignOut ends the session.
//
// HTTP: POST /auth/signout
//
// Tokens are stateless, so there is nothing to revoke server-side; the
// client discards its pair. The endpoint exists so that sign-out is an
// explicit, logged event.
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	if accountID, ok := auth.AccountIDFromContext(r.Context()); ok {
		h.logger.Info("signed out", slog.String("accountID", accountID))
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSession returns the identity behind the presented access token.
//
// HTTP: GET /auth/session
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())

	account, err := h.accounts.GetByID(r.Context(), accountID)
	if err != nil {
		writeError(w, apperror.Unauthenticated("account no longer exists"))
		return
	}

	writeJSON(w, http.StatusOK, sessionInfo{
		UserID:   account.ID,
		UserName: account.Name,
	})
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	// The state round-trips through a short-lived cookie; the callback
	// rejects any response that doesn't echo it.
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow: verifies the state,
// exchanges the code for a GitHub profile, upserts the account and responds
// with a session.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	// Single-use: clear the state cookie immediately.
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: authorization denied", slog.String("error", errParam))
		writeError(w, apperror.Unauthenticated("GitHub authorization was denied"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.logger.Error("auth callback: exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.Unauthenticated("GitHub sign-in failed"))
		return
	}

	account := &model.Account{
		Email:    ghUser.Email,
		Name:     ghUser.DisplayName(),
		GitHubID: ghUser.ID,
	}
	if err := h.accounts.UpsertByGitHubID(r.Context(), account); err != nil {
		h.logger.Error("auth callback: upsert failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	h.logger.Info("signed in via GitHub",
		slog.String("accountID", account.ID),
		slog.String("login", ghUser.Login),
	)
	h.writeSession(w, http.StatusOK, account)
}

// writeSession issues a fresh token pair for the account and writes the
// session shape clients consume.
func (h *AuthHandler) writeSession(w http.ResponseWriter, status int, account *model.Account) {
	pair, err := h.tokens.Issue(account.ID)
	if err != nil {
		h.logger.Error("failed to issue tokens", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, status, remote.Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		UserID:       account.ID,
		UserName:     account.Name,
	})
}

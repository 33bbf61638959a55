package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ellavondegurechaff/materialpool/backend/config"
	"github.com/ellavondegurechaff/materialpool/backend/models"
	"github.com/gofiber/fiber/v2"
)

const SessionCookieName = "materialpool_session"

var (
	ErrNoSession         = errors.New("no session cookie found")
	ErrSessionExpired    = errors.New("session expired")
	ErrSessionKeyMissing = errors.New("session key not configured")
	ErrSessionTampered   = errors.New("session signature mismatch")
)

var tokenEncoding = base64.RawURLEncoding

// SessionService keeps the whole session in a signed cookie: base64(json) "." base64(hmac).
// Nothing is stored server side, so a restart keeps everyone logged in.
type SessionService struct {
	config *config.WebAppConfig
	now    func() time.Time
}

func NewSessionService(cfg *config.WebAppConfig) *SessionService {
	return &SessionService{config: cfg, now: time.Now}
}

// CreateSession signs the session and sets the session cookie
func (s *SessionService) CreateSession(c *fiber.Ctx, session *models.UserSession) error {
	token, err := s.Encode(session)
	if err != nil {
		return err
	}

	s.setCookie(c, token, int(session.ExpiresAt.Sub(s.now())/time.Second))

	slog.Info("Session created",
		slog.Int64("user_id", session.UserID),
		slog.String("username", session.Username),
		slog.Bool("is_admin", session.IsAdmin))
	return nil
}

// GetSession reads the cookie. Expired cookies are cleared on the way out.
func (s *SessionService) GetSession(c *fiber.Ctx) (*models.UserSession, error) {
	token := c.Cookies(SessionCookieName)
	if token == "" {
		return nil, ErrNoSession
	}

	session, err := s.Decode(token)
	if errors.Is(err, ErrSessionExpired) {
		s.DestroySession(c)
	}
	return session, err
}

func (s *SessionService) DestroySession(c *fiber.Ctx) {
	s.setCookie(c, "", -1)
}

// RefreshSession slides the expiry forward by the configured TTL.
func (s *SessionService) RefreshSession(c *fiber.Ctx, session *models.UserSession) error {
	session.ExpiresAt = s.now().Add(s.config.SessionTTL)
	return s.CreateSession(c, session)
}

// Encode produces the cookie value for session.
func (s *SessionService) Encode(session *models.UserSession) (string, error) {
	payload, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	mac, err := s.sign(payload)
	if err != nil {
		return "", err
	}
	return tokenEncoding.EncodeToString(payload) + "." + tokenEncoding.EncodeToString(mac), nil
}

// Decode verifies a cookie value and returns the session it carries.
func (s *SessionService) Decode(token string) (*models.UserSession, error) {
	rawPayload, rawMAC, ok := bytes.Cut([]byte(token), []byte("."))
	if !ok {
		return nil, ErrSessionTampered
	}

	payload, err := tokenEncoding.DecodeString(string(rawPayload))
	if err != nil {
		return nil, fmt.Errorf("malformed session payload: %w", err)
	}
	received, err := tokenEncoding.DecodeString(string(rawMAC))
	if err != nil || len(received) != sha256.Size {
		return nil, ErrSessionTampered
	}

	expected, err := s.sign(payload)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal(received, expected) {
		return nil, ErrSessionTampered
	}

	var session models.UserSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if !s.now().Before(session.ExpiresAt) {
		return nil, ErrSessionExpired
	}
	return &session, nil
}

func (s *SessionService) sign(payload []byte) ([]byte, error) {
	key := s.config.Config.Web.SessionKey
	if key == "" {
		return nil, ErrSessionKeyMissing
	}
	h := hmac.New(sha256.New, []byte(key))
	h.Write(payload)
	return h.Sum(nil), nil
}

func (s *SessionService) setCookie(c *fiber.Ctx, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   s.config.IsProduction(),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

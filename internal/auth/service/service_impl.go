package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/comanda/internal/auth/domain"
	"github.com/smallbiznis/comanda/internal/auth/password"
	"github.com/smallbiznis/comanda/internal/clock"
	"github.com/smallbiznis/comanda/internal/config"
	"github.com/smallbiznis/comanda/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sessionTokenBytes = 32
	defaultSessionTTL = 12 * time.Hour
	maxUsernameLength = 64

	// touchInterval bounds how often last_seen_at is written for an active session.
	touchInterval = time.Minute
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Cfg         config.Config
	Repo        domain.Repository
	SessionRepo domain.SessionRepository
	Limiter     *ratelimit.LoginLimiter `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	sessionRepo domain.SessionRepository
	limiter     *ratelimit.LoginLimiter
	sessionTTL  time.Duration
}

func New(p Params) domain.Service {
	ttl := p.Cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("auth.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		sessionRepo: p.SessionRepo,
		limiter:     p.Limiter,
		sessionTTL:  ttl,
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	username, err := normalizeUsername(req.Username)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if s.limiter != nil {
		if res := s.limiter.Allow(ctx, username, req.IPAddress); !res.Allowed {
			s.log.Warn("login throttled",
				zap.String("username", username),
				zap.String("ip", req.IPAddress),
				zap.Duration("retry_after", res.RetryAfter),
			)
			return nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.repo.FindByUsername(ctx, s.db, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !password.Verify(req.Password, user.PasswordHash) {
		s.log.Info("login rejected", zap.String("username", username))
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, domain.ErrUserInactive
	}

	now := s.clock.Now().UTC()
	if password.NeedsRehash(user.PasswordHash) {
		if hashed, err := password.Hash(req.Password); err == nil {
			user.PasswordHash = hashed
			user.UpdatedAt = now
			if err := s.repo.Update(ctx, s.db, user); err != nil {
				s.log.Warn("password rehash failed", zap.Int64("user_id", user.ID), zap.Error(err))
			}
		}
	}

	rawToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	session := &domain.Session{
		ID:         s.genID.Generate().Int64(),
		UserID:     user.ID,
		TokenHash:  hashToken(rawToken),
		UserAgent:  truncate(req.UserAgent, 255),
		IPAddress:  req.IPAddress,
		ExpiresAt:  now.Add(s.sessionTTL),
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := s.sessionRepo.Insert(ctx, s.db, session); err != nil {
		return nil, err
	}

	s.log.Info("user logged in",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)
	return &domain.LoginResult{
		User:      domain.NewUserResponse(user),
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil
	}
	session, err := s.sessionRepo.FindByTokenHash(ctx, s.db, hashToken(rawToken))
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}
	return s.sessionRepo.Revoke(ctx, s.db, session.ID, s.clock.Now().UTC())
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Principal, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, domain.ErrInvalidSession
	}
	session, err := s.sessionRepo.FindByTokenHash(ctx, s.db, hashToken(rawToken))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrInvalidSession
	}
	now := s.clock.Now().UTC()
	if session.RevokedAt != nil {
		return nil, domain.ErrSessionRevoked
	}
	if !now.Before(session.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}

	user, err := s.repo.FindByID(ctx, s.db, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidSession
	}
	if !user.Active {
		return nil, domain.ErrUserInactive
	}

	if now.Sub(session.LastSeenAt) >= touchInterval {
		if err := s.sessionRepo.Touch(ctx, s.db, session.ID, now); err != nil {
			s.log.Warn("session touch failed", zap.Int64("session_id", session.ID), zap.Error(err))
		}
	}

	return &domain.Principal{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		SessionID: session.ID,
	}, nil
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.UserResponse, error) {
	username, err := normalizeUsername(req.Username)
	if err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(req.Role, false)
	if err != nil {
		return nil, err
	}
	user, err := s.insertUser(ctx, username, strings.TrimSpace(req.DisplayName), req.Password, role)
	if err != nil {
		return nil, err
	}
	resp := domain.NewUserResponse(user)
	return &resp, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserResponse, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserResponse, 0, len(items))
	for i := range items {
		out = append(out, domain.NewUserResponse(&items[i]))
	}
	return out, nil
}

func (s *Service) UpdateUser(ctx context.Context, req domain.UpdateUserRequest) (*domain.UserResponse, error) {
	user, err := s.findUser(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if user.Role == domain.RoleRoot {
		return nil, domain.ErrProtectedUser
	}

	now := s.clock.Now().UTC()
	revoke := false
	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Role != nil {
		role, err := domain.ParseRole(*req.Role, false)
		if err != nil {
			return nil, err
		}
		revoke = revoke || role != user.Role
		user.Role = role
	}
	if req.Active != nil {
		revoke = revoke || (user.Active && !*req.Active)
		user.Active = *req.Active
	}
	if req.Password != nil {
		hashed, err := hashNew(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hashed
		user.LastPasswordChanged = &now
		revoke = true
	}
	user.UpdatedAt = now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, user); err != nil {
			return err
		}
		if revoke {
			return s.sessionRepo.RevokeForUser(ctx, tx, user.ID, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user updated",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.Bool("active", user.Active),
		zap.Bool("sessions_revoked", revoke),
	)
	resp := domain.NewUserResponse(user)
	return &resp, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == domain.RoleRoot {
		return domain.ErrProtectedUser
	}
	now := s.clock.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.sessionRepo.RevokeForUser(ctx, tx, user.ID, now); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, user.ID)
	})
	if err != nil {
		return err
	}
	s.log.Info("user deleted", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, req domain.ChangePasswordRequest) error {
	user, err := s.repo.FindByID(ctx, s.db, req.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	if !password.Verify(req.CurrentPassword, user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	hashed, err := hashNew(req.NewPassword)
	if err != nil {
		return err
	}
	now := s.clock.Now().UTC()
	user.PasswordHash = hashed
	user.LastPasswordChanged = &now
	user.UpdatedAt = now
	return s.repo.Update(ctx, s.db, user)
}

func (s *Service) EnsureUser(ctx context.Context, username, pass string, role domain.Role) (bool, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return false, err
	}
	existing, err := s.repo.FindByUsername(ctx, s.db, username)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	if _, err := s.insertUser(ctx, username, "", pass, role); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) PruneSessions(ctx context.Context) (int64, error) {
	removed, err := s.sessionRepo.DeleteExpired(ctx, s.db, s.clock.Now().UTC())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info("sessions pruned", zap.Int64("count", removed))
	}
	return removed, nil
}

func (s *Service) insertUser(ctx context.Context, username, displayName, pass string, role domain.Role) (*domain.User, error) {
	existing, err := s.repo.FindByUsername(ctx, s.db, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrUserExists
	}
	hashed, err := hashNew(pass)
	if err != nil {
		return nil, err
	}
	if displayName == "" {
		displayName = username
	}
	now := s.clock.Now().UTC()
	user := &domain.User{
		ID:                  s.genID.Generate().Int64(),
		Username:            username,
		DisplayName:         displayName,
		Role:                role,
		PasswordHash:        hashed,
		Active:              true,
		LastPasswordChanged: &now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.repo.Insert(ctx, s.db, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrUserExists
		}
		return nil, err
	}
	s.log.Info("user created",
		zap.Int64("user_id", user.ID),
		zap.String("username", username),
		zap.String("role", string(role)),
	)
	return user, nil
}

func (s *Service) findUser(ctx context.Context, rawID string) (*domain.User, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || id <= 0 {
		return nil, domain.ErrInvalidUserID
	}
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func hashNew(pass string) (string, error) {
	if err := password.Validate(pass); err != nil {
		return "", err
	}
	return password.Hash(pass)
}

func normalizeUsername(raw string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(raw))
	if username == "" || len(username) > maxUsernameLength || strings.ContainsAny(username, " \t\r\n:") {
		return "", domain.ErrInvalidUsername
	}
	return username, nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func truncate(v string, n int) string {
	if len(v) <= n {
		return v
	}
	return v[:n]
}

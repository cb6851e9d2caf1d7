package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cryptoarcade/backend/internal/audit"
	"github.com/cryptoarcade/backend/internal/logger"
	"github.com/cryptoarcade/backend/internal/models"
	"github.com/cryptoarcade/backend/internal/store"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	roleCachePrefix   = "auth:roles:"
	roleVersionPrefix = "auth:roles:ver:"
	roleCacheTTL      = 5 * time.Minute
	// outlives every cache entry written under an older version
	roleVersionTTL = 24 * time.Hour
)

// AccessService answers role questions. Grants live in the store; Redis,
// when configured, caches a user's role list under a per-user version that
// every grant or revoke bumps, so a list read before a change can never be
// served after it.
type AccessService struct {
	roles store.RoleStore
	redis *redis.Client
	audit *audit.AuditLogger
	now   func() time.Time
}

func NewAccessService(roles store.RoleStore, redisClient *redis.Client, auditLog *audit.AuditLogger) *AccessService {
	if auditLog == nil {
		auditLog = audit.NewAuditLogger(nil)
	}
	return &AccessService{
		roles: roles,
		redis: redisClient,
		audit: auditLog,
		now:   time.Now,
	}
}

// Roles lists the explicit grants of userID.
func (s *AccessService) Roles(ctx context.Context, userID string) ([]models.Role, error) {
	version, cacheable := s.roleVersion(ctx, userID)
	if cacheable {
		if cached, ok := s.cachedRoles(ctx, userID, version); ok {
			return cached, nil
		}
	}

	roles, err := s.roles.ListRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []models.Role{}
	}
	if cacheable {
		s.cacheRoles(ctx, userID, version, roles)
	}
	return roles, nil
}

// HasRole reports whether userID holds role. Every authenticated user holds
// RoleUser. Lookup failures deny.
func (s *AccessService) HasRole(ctx context.Context, userID string, role models.Role) bool {
	if userID == "" {
		return false
	}
	if role == models.RoleUser {
		return true
	}

	roles, err := s.Roles(ctx, userID)
	if err != nil {
		logger.ErrorCtx(ctx, "role lookup failed", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (s *AccessService) RequireRole(ctx context.Context, userID string, role models.Role) error {
	if !s.HasRole(ctx, userID, role) {
		return fmt.Errorf("%w: %s role required", models.ErrForbidden, role)
	}
	return nil
}

// Grant gives userID role. Only admins may grant.
func (s *AccessService) Grant(ctx context.Context, actorID, userID string, role models.Role) error {
	if err := s.RequireRole(ctx, actorID, models.RoleAdmin); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", models.ErrInvalidRequest)
	}

	actor := actorID
	if err := s.roles.GrantRole(ctx, models.RoleGrant{UserID: userID, Role: role, GrantedBy: &actor, CreatedAt: s.now().UTC()}); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	s.audit.LogRoleChange(userID, actorID, string(role), "ROLE_GRANTED")
	logger.InfoCtx(ctx, "role granted", zap.String("user_id", userID), zap.String("role", string(role)), zap.String("actor_id", actorID))
	return nil
}

// Revoke removes a grant. Only admins may revoke.
func (s *AccessService) Revoke(ctx context.Context, actorID, userID string, role models.Role) error {
	if err := s.RequireRole(ctx, actorID, models.RoleAdmin); err != nil {
		return err
	}
	if err := s.roles.RevokeRole(ctx, userID, role); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	s.audit.LogRoleChange(userID, actorID, string(role), "ROLE_REVOKED")
	logger.InfoCtx(ctx, "role revoked", zap.String("user_id", userID), zap.String("role", string(role)), zap.String("actor_id", actorID))
	return nil
}

// BootstrapAdmins grants admin to the configured user ids. Existing grants
// are left alone.
func (s *AccessService) BootstrapAdmins(ctx context.Context, userIDs []string) error {
	for _, id := range userIDs {
		err := s.roles.GrantRole(ctx, models.RoleGrant{UserID: id, Role: models.RoleAdmin, CreatedAt: s.now().UTC()})
		if err != nil && !errors.Is(err, models.ErrRoleExists) {
			return fmt.Errorf("bootstrap admin %s: %w", id, err)
		}
		if err == nil {
			s.invalidate(ctx, id)
			s.audit.LogRoleChange(id, "system", string(models.RoleAdmin), "ROLE_GRANTED")
		}
	}
	return nil
}

func roleCacheKey(userID string, version int64) string {
	return roleCachePrefix + userID + ":" + strconv.FormatInt(version, 10)
}

// roleVersion reads the user's cache version. The cache is skipped when
// Redis is absent or unreadable.
func (s *AccessService) roleVersion(ctx context.Context, userID string) (int64, bool) {
	if s.redis == nil {
		return 0, false
	}
	v, err := s.redis.Get(ctx, roleVersionPrefix+userID).Int64()
	if err == redis.Nil {
		return 0, true
	}
	if err != nil {
		logger.WarnCtx(ctx, "role cache read failed", zap.String("user_id", userID), zap.Error(err))
		return 0, false
	}
	return v, true
}

func (s *AccessService) cachedRoles(ctx context.Context, userID string, version int64) ([]models.Role, bool) {
	data, err := s.redis.Get(ctx, roleCacheKey(userID, version)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.WarnCtx(ctx, "role cache read failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil, false
	}
	var roles []models.Role
	if err := json.Unmarshal(data, &roles); err != nil {
		return nil, false
	}
	return roles, true
}

func (s *AccessService) cacheRoles(ctx context.Context, userID string, version int64, roles []models.Role) {
	data, err := json.Marshal(roles)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, roleCacheKey(userID, version), data, roleCacheTTL).Err(); err != nil {
		logger.WarnCtx(ctx, "role cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *AccessService) invalidate(ctx context.Context, userID string) {
	if s.redis == nil {
		return
	}
	key := roleVersionPrefix + userID
	if err := s.redis.Incr(ctx, key).Err(); err != nil {
		logger.WarnCtx(ctx, "role cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := s.redis.Expire(ctx, key, roleVersionTTL).Err(); err != nil {
		logger.WarnCtx(ctx, "role cache version expiry not set", zap.String("user_id", userID), zap.Error(err))
	}
}

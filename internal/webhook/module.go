package webhook

import (
	"crm_backend/internal/events"
	apphttp "crm_backend/internal/http"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module exposes the inbound channels and their key administration.
type Module struct {
	keys    *KeyService
	inbound *inboundHandler
	admin   *keyAdminHandler
}

func NewModule(pool *pgxpool.Pool, ingester Ingester, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	return newModule(NewRepository(pool), ingester, eventBus, val, log)
}

func newModule(store KeyStore, ingester Ingester, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	keys := NewKeyService(store, log)
	return &Module{
		keys:    keys,
		inbound: &inboundHandler{service: NewService(ingester, eventBus, log), val: val},
		admin:   &keyAdminHandler{keys: keys, val: val},
	}
}

func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the channels under /webhook, rate limited before key
// lookup, and key management under the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	var chain []gin.HandlerFunc
	if ctx.WebhookRateLimiter != nil {
		chain = append(chain, ctx.WebhookRateLimiter.Middleware())
	}
	chain = append(chain, RequireAPIKey(m.keys))

	channels := ctx.V1.Group("/webhook", chain...)
	channels.POST("/forms", m.inbound.submitForm)
	channels.POST("/chat", m.inbound.submitChat)

	keys := ctx.Admin.Group("/webhook/keys")
	keys.POST("", m.admin.issue)
	keys.GET("", m.admin.list)
	keys.DELETE("/:keyId", m.admin.revoke)
}

var _ apphttp.Module = (*Module)(nil)

package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"github.com/abaflow/practice-api/internal/handler"
	"github.com/abaflow/practice-api/internal/repository"
)

// PlanGate resolves the clinic's subscription flags. Discipline-scoped
// scheduling is a pro feature; general sessions are always available.
// The flag is a presentational gate supplied by the billing side, not
// scheduling logic, so it is cached aggressively.
type PlanGate struct {
	clinics repository.ClinicRepository
	flags   *cache.Cache
}

func NewPlanGate(clinics repository.ClinicRepository) *PlanGate {
	return &PlanGate{
		clinics: clinics,
		flags:   cache.New(5*time.Minute, 10*time.Minute),
	}
}

const ContextHasProAccess = "has_pro_access"

// Resolve sets the has_pro_access flag for the caller's clinic.
func (g *PlanGate) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFromContext(c)
		key := actor.ClinicID.String()

		if flag, ok := g.flags.Get(key); ok {
			c.Set(ContextHasProAccess, flag.(bool))
			c.Next()
			return
		}

		clinic, err := g.clinics.Get(c.Request.Context(), actor.ClinicID)
		if err != nil {
			c.JSON(http.StatusNotFound, handler.NewErrorResponse("clinic not found"))
			c.Abort()
			return
		}
		g.flags.Set(key, clinic.HasProAccess, cache.DefaultExpiration)
		c.Set(ContextHasProAccess, clinic.HasProAccess)
		c.Next()
	}
}

// HasProAccess reads the resolved flag.
func HasProAccess(c *gin.Context) bool {
	return c.GetBool(ContextHasProAccess)
}

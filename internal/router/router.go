// Package router wires the HTTP surface: public auth endpoints, then
// everything else behind the access gate and rate limiter.
package router

import (
	"github.com/ZeldaFan0225/expense-flow/internal/config"
	"github.com/ZeldaFan0225/expense-flow/internal/handler"
	"github.com/ZeldaFan0225/expense-flow/internal/middleware"
	"github.com/ZeldaFan0225/expense-flow/internal/ratelimit"
	"github.com/ZeldaFan0225/expense-flow/internal/recurring"
	"github.com/ZeldaFan0225/expense-flow/internal/report"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/gin-gonic/gin"
)

// Deps carries everything the routes need.
type Deps struct {
	Config  *config.Config
	Stores  *store.Stores
	Codec   *util.Codec
	Limiter *ratelimit.Limiter
}

// New builds the engine with all routes registered.
func New(deps Deps) *gin.Engine {
	if deps.Config.Server.Mode != "" {
		gin.SetMode(deps.Config.Server.Mode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	materializer := recurring.NewMaterializer(deps.Stores.Recurring, deps.Codec)
	engine := report.NewEngine(deps.Stores, deps.Codec)

	authH := handler.NewAuthHandler(deps.Stores.Users, deps.Config.Session.Secret, deps.Config.Session.ExpireHours, deps.Config.Security.ActiveKeyVersion)
	categoryH := handler.NewCategoryHandler(deps.Stores.Categories)
	expenseH := handler.NewExpenseHandler(deps.Stores, deps.Codec, materializer)
	incomeH := handler.NewIncomeHandler(deps.Stores.Incomes, deps.Codec, materializer)
	recurringH := handler.NewRecurringHandler(deps.Stores.Recurring, deps.Stores.Categories, deps.Codec)
	limitH := handler.NewLimitHandler(deps.Stores.Limits, deps.Stores.Categories, deps.Codec)
	analyticsH := handler.NewAnalyticsHandler(engine, materializer)
	apiKeyH := handler.NewApiKeyHandler(deps.Stores.ApiKeys)
	scheduleH := handler.NewScheduleHandler(deps.Stores.Schedules)
	exportH := handler.NewExportHandler(engine, deps.Stores.Expenses, deps.Codec, materializer)

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)

	protected := api.Group("")
	protected.Use(middleware.Gate(deps.Stores, deps.Config.Session.Secret, deps.Limiter))

	session := middleware.RequireSession()
	protected.GET("/me", handler.GetMe)
	protected.PATCH("/settings", session, handler.UpdateSettings(deps.Stores.Users))

	categories := protected.Group("/categories")
	categories.GET("", middleware.RequireScope(util.ScopeExpensesRead), categoryH.List)
	categories.POST("", middleware.RequireScope(util.ScopeExpensesWrite), categoryH.Create)
	categories.PATCH("/:id", middleware.RequireScope(util.ScopeExpensesWrite), categoryH.Update)
	categories.DELETE("/:id", middleware.RequireScope(util.ScopeExpensesWrite), categoryH.Delete)

	expenses := protected.Group("/expenses")
	expenses.GET("", middleware.RequireScope(util.ScopeExpensesRead), expenseH.List)
	expenses.GET("/:id", middleware.RequireScope(util.ScopeExpensesRead), expenseH.Get)
	expenses.POST("", middleware.RequireScope(util.ScopeExpensesWrite), expenseH.Create)
	expenses.POST("/bulk", middleware.RequireScope(util.ScopeExpensesWrite), expenseH.BulkCreate)
	expenses.PATCH("/:id", middleware.RequireScope(util.ScopeExpensesWrite), expenseH.Update)
	expenses.DELETE("/:id", middleware.RequireScope(util.ScopeExpensesWrite), expenseH.Delete)

	income := protected.Group("/income")
	income.GET("", middleware.RequireScope(util.ScopeExpensesRead), incomeH.List)
	income.POST("", middleware.RequireScope(util.ScopeIncomeWrite), incomeH.Create)
	income.DELETE("/:id", middleware.RequireScope(util.ScopeIncomeWrite), incomeH.Delete)

	// flat path: nesting under /income/:id would make the id segment
	// ambiguous with "recurring" in gin's route tree
	incomeRecurring := protected.Group("/recurring-income")
	incomeRecurring.GET("", middleware.RequireScope(util.ScopeIncomeWrite), recurringH.ListIncomeTemplates)
	incomeRecurring.POST("", middleware.RequireScope(util.ScopeIncomeWrite), recurringH.CreateIncomeTemplate)
	incomeRecurring.PATCH("/:id", middleware.RequireScope(util.ScopeIncomeWrite), recurringH.UpdateIncomeTemplate)
	incomeRecurring.DELETE("/:id", middleware.RequireScope(util.ScopeIncomeWrite), recurringH.DeleteIncomeTemplate)

	recurringRoutes := protected.Group("/recurring")
	recurringRoutes.GET("", middleware.RequireScope(util.ScopeExpensesWrite), recurringH.ListExpenseTemplates)
	recurringRoutes.POST("", middleware.RequireScope(util.ScopeExpensesWrite), recurringH.CreateExpenseTemplate)
	recurringRoutes.PATCH("/:id", middleware.RequireScope(util.ScopeExpensesWrite), recurringH.UpdateExpenseTemplate)
	recurringRoutes.POST("/:id/toggle", middleware.RequireScope(util.ScopeExpensesWrite), recurringH.ToggleExpenseTemplate)
	recurringRoutes.DELETE("/:id", middleware.RequireScope(util.ScopeExpensesWrite), recurringH.DeleteExpenseTemplate)

	limits := protected.Group("/category-limits")
	limits.GET("", middleware.RequireScope(util.ScopeBudgetRead), limitH.List)
	limits.PUT("", middleware.RequireScope(util.ScopeExpensesWrite), limitH.Upsert)
	limits.DELETE("/:id", middleware.RequireScope(util.ScopeExpensesWrite), limitH.Delete)

	analytics := protected.Group("/analytics")
	analytics.GET("/category-limits", middleware.RequireScope(util.ScopeAnalyticsRead), analyticsH.CategoryLimits)
	analytics.GET("/summary", middleware.RequireScope(util.ScopeAnalyticsRead), analyticsH.Summary)

	apiKeys := protected.Group("/api-keys", session)
	apiKeys.GET("", apiKeyH.List)
	apiKeys.POST("", apiKeyH.Create)
	apiKeys.DELETE("/:id", apiKeyH.Revoke)

	schedules := protected.Group("/import/schedules", session)
	schedules.GET("", scheduleH.List)
	schedules.POST("", scheduleH.Create)
	schedules.PATCH("/:id", scheduleH.Update)
	schedules.DELETE("/:id", scheduleH.Delete)

	export := protected.Group("/export", session)
	export.GET("/account", exportH.Account)
	export.GET("/expenses.xlsx", exportH.ExpensesXlsx)

	return r
}

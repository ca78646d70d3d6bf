// Package router wires the HTTP routes.
package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/tracker/internal/auth"
	"github.com/monocle-dev/tracker/internal/handlers"
	"github.com/monocle-dev/tracker/internal/logger"
	"github.com/monocle-dev/tracker/internal/middleware"
	"github.com/monocle-dev/tracker/internal/services"
	"github.com/rs/zerolog"
)

type Options struct {
	Handler        *handlers.Handler
	Service        *services.Service
	Tokens         *auth.Tokens
	Logger         zerolog.Logger
	AllowedOrigins []string
}

func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.Middleware(opts.Logger))

	// cors.New panics on an empty origin list; no origins means same-origin only.
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	h := opts.Handler
	authed := middleware.Auth(opts.Tokens, opts.Service)

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/ws/:project_id", authed, h.WebSocket)

		a := api.Group("/auth")
		{
			a.POST("/register", h.Register)
			a.POST("/login", h.Login)
			a.POST("/logout", h.Logout)
			a.GET("/me", authed, h.Me)
		}

		profile := api.Group("/profile", authed)
		{
			profile.GET("", h.Me)
			profile.PATCH("", h.UpdateProfile)
			profile.PUT("/password", h.ChangePassword)
		}

		projects := api.Group("/projects", authed)
		{
			projects.GET("", h.ListProjects)
			projects.POST("", h.CreateProject)
			projects.GET("/:project_id", h.GetProject)
			projects.PUT("/:project_id", h.UpdateProject)
			projects.DELETE("/:project_id", h.DeleteProject)
			projects.POST("/:project_id/suspend", h.SuspendProject)
			projects.POST("/:project_id/resume", h.ResumeProject)
		}

		templates := api.Group("/templates", authed)
		{
			templates.GET("", h.ListTemplates)
			templates.POST("", h.CreateTemplate)
			templates.GET("/:template_id", h.GetTemplate)
			templates.PUT("/:template_id", h.UpdateTemplate)
			templates.DELETE("/:template_id", h.DeleteTemplate)
			templates.POST("/:template_id/lock", h.LockTemplate)
			templates.POST("/:template_id/unlock", h.UnlockTemplate)
			templates.GET("/:template_id/permissions", h.GetTemplatePermissions)
			templates.PUT("/:template_id/permissions", h.SetTemplatePermission)
		}

		states := api.Group("/states", authed)
		{
			states.GET("", h.ListStates)
			states.POST("", h.CreateState)
			states.GET("/:state_id", h.GetState)
			states.PUT("/:state_id", h.UpdateState)
			states.DELETE("/:state_id", h.DeleteState)
			states.POST("/:state_id/initial", h.SetInitialState)
			states.GET("/:state_id/transitions", h.GetTransitions)
			states.PUT("/:state_id/transitions", h.SetTransitions)
			states.GET("/:state_id/responsible_groups", h.GetResponsibleGroups)
			states.PUT("/:state_id/responsible_groups", h.SetResponsibleGroups)
			states.GET("/:state_id/responsibles", h.ListResponsibles)
		}

		fields := api.Group("/fields", authed)
		{
			fields.GET("", h.ListFields)
			fields.POST("", h.CreateField)
			fields.GET("/:field_id", h.GetField)
			fields.PUT("/:field_id", h.UpdateField)
			fields.DELETE("/:field_id", h.DeleteField)
			fields.PUT("/:field_id/position", h.SetFieldPosition)
			fields.GET("/:field_id/permissions", h.GetFieldPermissions)
			fields.PUT("/:field_id/permissions", h.SetFieldPermission)
		}

		items := api.Group("/items", authed)
		{
			items.GET("", h.ListListItems)
			items.POST("", h.CreateListItem)
			items.GET("/:item_id", h.GetListItem)
			items.PUT("/:item_id", h.UpdateListItem)
			items.DELETE("/:item_id", h.DeleteListItem)
		}

		groups := api.Group("/groups", authed)
		{
			groups.GET("", h.ListGroups)
			groups.POST("", h.CreateGroup)
			groups.GET("/:group_id", h.GetGroup)
			groups.PUT("/:group_id", h.UpdateGroup)
			groups.DELETE("/:group_id", h.DeleteGroup)
			groups.GET("/:group_id/members", h.ListMembers)
			groups.PATCH("/:group_id/members", h.AddMembers)
			groups.DELETE("/:group_id/members", h.RemoveMembers)
		}

		users := api.Group("/users", authed)
		{
			users.GET("", h.ListUsers)
			users.POST("", h.CreateUser)
			users.GET("/:user_id", h.GetUser)
			users.PUT("/:user_id", h.UpdateUser)
			users.DELETE("/:user_id", h.DeleteUser)
			users.POST("/:user_id/disable", h.DisableUser)
			users.POST("/:user_id/enable", h.EnableUser)
			users.POST("/:user_id/unlock", h.UnlockUser)
			users.PUT("/:user_id/password", h.SetPassword)
			users.PATCH("/:user_id/groups", h.AddUserGroups)
			users.DELETE("/:user_id/groups", h.RemoveUserGroups)
		}

		issues := api.Group("/issues", authed)
		{
			issues.GET("", h.ListIssues)
			issues.POST("", h.CreateIssue)
			issues.POST("/read", h.MarkRead)
			issues.POST("/unread", h.MarkUnread)
			issues.GET("/:issue_id", h.GetIssue)
			issues.PUT("/:issue_id", h.UpdateIssue)
			issues.DELETE("/:issue_id", h.DeleteIssue)
			issues.POST("/:issue_id/clone", h.CloneIssue)
			issues.POST("/:issue_id/state/:state_id", h.ChangeState)
			issues.POST("/:issue_id/assign", h.ReassignIssue)
			issues.POST("/:issue_id/suspend", h.SuspendIssue)
			issues.POST("/:issue_id/resume", h.ResumeIssue)
			issues.POST("/:issue_id/watch", h.WatchIssue)
			issues.POST("/:issue_id/unwatch", h.UnwatchIssue)
			issues.GET("/:issue_id/watchers", h.ListWatchers)
			issues.GET("/:issue_id/events", h.ListEvents)
			issues.GET("/:issue_id/changes", h.ListChanges)
			issues.GET("/:issue_id/comments", h.ListComments)
			issues.POST("/:issue_id/comments", h.AddComment)
			issues.GET("/:issue_id/files", h.ListFiles)
			issues.POST("/:issue_id/files", h.AttachFile)
			issues.GET("/:issue_id/dependencies", h.ListDependencies)
			issues.POST("/:issue_id/dependencies", h.AddDependency)
			issues.DELETE("/:issue_id/dependencies/:dependency_id", h.RemoveDependency)
		}

		files := api.Group("/files", authed)
		{
			files.GET("/:file_id", h.DownloadFile)
			files.DELETE("/:file_id", h.DeleteFile)
		}
	}

	return r
}

package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/jeevaneswaran/examportal/core"
	"github.com/jeevaneswaran/examportal/core/auth"
	"github.com/jeevaneswaran/examportal/core/profile"
)

// a portal handler running without gate-provided state means the route
// wiring itself is broken; treat it as an integrity failure
var errStateNotFoundInCtx = core.NewShutdownError("auth state not found in echo.Context")

type portalApi struct {
	srv *server
}

func registerPortalAPI(g *echo.Group, srv *server) {
	api := portalApi{srv: srv}

	// any signed-in role
	mg := g.Group("/me", srv.gateMiddleware(auth.Route{Path: "/v1/me"}))
	mg.GET("", api.retrieveMe)
	mg.PUT("", api.updateMe)

	sg := g.Group("/student", srv.gateMiddleware(auth.Route{
		Path:         studentHomePath,
		AllowedRoles: roles(profile.RoleStudent),
	}))
	sg.GET("/dashboard", api.view("student dashboard"))
	sg.GET("/exams", api.view("available exams"))
	sg.GET("/results", api.view("exam results"))
	sg.GET("/materials", api.view("study materials"))
	sg.GET("/blogs", api.view("blog posts"))

	// the pending view carries its own Route so an unapproved teacher
	// is not bounced away from it
	pg := g.Group("/teacher/pending", srv.gateMiddleware(auth.Route{
		Path:         pendingPath,
		AllowedRoles: roles(profile.RoleTeacher),
	}))
	pg.GET("", api.pendingApproval)

	tg := g.Group("/teacher", srv.gateMiddleware(auth.Route{
		Path:         teacherHomePath,
		AllowedRoles: roles(profile.RoleTeacher),
	}))
	tg.GET("/dashboard", api.view("teacher dashboard"))
	tg.GET("/courses", api.view("course management"))
	tg.GET("/questions", api.view("question bank"))
	tg.GET("/exams", api.view("exam management"))

	adg := g.Group("/admin", srv.gateMiddleware(auth.Route{
		Path:         adminHomePath,
		AllowedRoles: roles(profile.RoleAdmin),
	}))
	adg.GET("/dashboard", api.view("admin dashboard"))
	adg.GET("/teachers", api.queryTeachers)
	adg.GET("/teachers/pending", api.pendingTeachers)
	adg.POST("/teachers/:id/approve", api.approveTeacher)
	adg.GET("/students", api.queryStudents)
}

// Handlers

// view renders a placeholder for a portal section; the actual content
// services live in their own modules.
func (api *portalApi) view(name string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		st, ok := getContextAuthState(ctx)
		if !ok {
			return errors.Wrap(errStateNotFoundInCtx, "rendering view")
		}
		return ctx.JSON(http.StatusOK, echo.Map{
			"view": name,
			"role": st.Role,
		})
	}
}

func (api *portalApi) retrieveMe(ctx echo.Context) error {
	st, ok := getContextAuthState(ctx)
	if !ok || st.Identity == nil {
		return errors.Wrap(errStateNotFoundInCtx, "retrieving profile")
	}

	prof, err := api.srv.opts.ProfileSvc.Get(ctx.Request().Context(), st.Identity.ID)
	if err != nil {
		if errors.Cause(err) == profile.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding profile by ID")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *portalApi) updateMe(ctx echo.Context) error {
	st, ok := getContextAuthState(ctx)
	if !ok || st.Identity == nil {
		return errors.Wrap(errStateNotFoundInCtx, "updating profile")
	}

	var data profile.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err := data.Validate(api.srv.opts.Validate); err != nil {
		return err
	}

	prof, err := api.srv.opts.ProfileSvc.Update(ctx.Request().Context(), st.Identity.ID, data)
	if err != nil {
		if errors.Cause(err) == profile.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *portalApi) pendingApproval(ctx echo.Context) error {
	st, ok := getContextAuthState(ctx)
	if !ok {
		return errors.Wrap(errStateNotFoundInCtx, "rendering pending view")
	}
	if st.IsApproved {
		return ctx.JSON(http.StatusOK, echo.Map{
			"approved":    true,
			"redirect_to": teacherHomePath,
		})
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"approved": false,
		"detail":   "Your teacher account is awaiting admin approval.",
	})
}

func (api *portalApi) queryTeachers(ctx echo.Context) error {
	return api.filtered(ctx, profile.QueryFilter{
		Role:   profile.RoleTeacher,
		Search: ctx.QueryParam("search"),
	})
}

func (api *portalApi) queryStudents(ctx echo.Context) error {
	return api.filtered(ctx, profile.QueryFilter{
		Role:   profile.RoleStudent,
		Search: ctx.QueryParam("search"),
	})
}

func (api *portalApi) filtered(ctx echo.Context, filter profile.QueryFilter) error {
	profs, err := api.srv.opts.ProfileSvc.Filter(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "filtering profiles")
	}
	if profs == nil {
		profs = []profile.Profile{}
	}
	return ctx.JSON(http.StatusOK, profs)
}

func (api *portalApi) pendingTeachers(ctx echo.Context) error {
	profs, err := api.srv.opts.ProfileSvc.PendingTeachers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing pending teachers")
	}
	if profs == nil {
		profs = []profile.Profile{}
	}
	return ctx.JSON(http.StatusOK, profs)
}

func (api *portalApi) approveTeacher(ctx echo.Context) error {
	prof, err := api.srv.opts.ProfileSvc.Approve(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		switch errors.Cause(err) {
		case profile.ErrNotFound:
			return errHttpNotFound
		case profile.ErrNotTeacher:
			return core.NewValidationError(profile.ErrNotTeacher)
		}
		return errors.Wrap(err, "approving teacher")
	}
	return ctx.JSON(http.StatusOK, prof)
}

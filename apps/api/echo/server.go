package echoapi

import (
	"context"
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/jeevaneswaran/examportal/core"
	"github.com/jeevaneswaran/examportal/core/auth"
	"github.com/jeevaneswaran/examportal/core/profile"
	identitysvc "github.com/jeevaneswaran/examportal/services/identity"
	"github.com/jeevaneswaran/examportal/storage/session"
)

// portal paths the gate redirects to
const (
	publicEntryPath   = "/"
	pendingPath       = "/v1/teacher/pending"
	studentHomePath   = "/v1/student/dashboard"
	teacherHomePath   = "/v1/teacher/dashboard"
	adminHomePath     = "/v1/admin/dashboard"
	sessionCookieName = "portal_session"
)

type (
	Options struct {
		Conf           *core.Config
		DisableReqLogs bool
		Logger         core.Logger
		ProfileSvc     profile.ServiceInterface
		Identity       identitysvc.Provider
		Sessions       session.Store
		Validate       *validator.Validate
		Translator     ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		gate     auth.Gate
		registry *sessionRegistry
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
		gate: auth.Gate{
			SignInURL:          publicEntryPath,
			PendingApprovalURL: pendingPath,
			RoleHomes: map[profile.Role]string{
				profile.RoleStudent: studentHomePath,
				profile.RoleTeacher: teacherHomePath,
				profile.RoleAdmin:   adminHomePath,
			},
		},
		registry: newSessionRegistry(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	debug := s.opts.Conf.Debug

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || s.opts.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	registerAuthAPI(v1, s)
	registerPortalAPI(v1, s)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Conf.Server.Addr))
}

func (s *server) Stop(ctx context.Context) error {
	s.registry.closeAll()
	return s.app.Shutdown(ctx)
}

// signalShutdown gracefully stops the server after a handler reports an
// integrity failure it cannot recover from.
func (s *server) signalShutdown() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	}()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Exam Portal API!")
}

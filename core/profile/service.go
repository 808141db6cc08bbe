package profile

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/jeevaneswaran/examportal/core"
)

var (
	// errors
	ErrNotFound      = errors.New("profile not found")
	ErrProfileExists = errors.New("a profile with this id already exists")
	ErrNotTeacher    = errors.New("only teacher accounts require approval")
)

type (
	Repository interface {
		GetProfile(ctx context.Context, id string) (Profile, error)
		CreateProfile(ctx context.Context, p Profile) (Profile, error)
		// UpdateProfile only saves set fields; isApproved is passed
		// separately so that "false" can be written explicitly.
		UpdateProfile(ctx context.Context, p Profile, isApproved *bool) (Profile, error)
		// FilterProfiles applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on name or email.
		FilterProfiles(ctx context.Context, filter QueryFilter) ([]Profile, error)
	}

	ServiceInterface interface {
		Get(ctx context.Context, id string) (Profile, error)
		Create(ctx context.Context, p Profile) (Profile, error)
		Update(ctx context.Context, id string, up UpdateProfile) (Profile, error)
		Approve(ctx context.Context, id string) (Profile, error)
		Filter(ctx context.Context, filter QueryFilter) ([]Profile, error)
		PendingTeachers(ctx context.Context) ([]Profile, error)
	}

	Service struct {
		conf    *core.Config
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService) *Service {
	return &Service{conf: conf, repo: repo, mailSvc: mailSvc}
}

func (svc *Service) Get(ctx context.Context, id string) (Profile, error) {
	return svc.repo.GetProfile(ctx, id)
}

func (svc *Service) Create(ctx context.Context, p Profile) (Profile, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	p, err := svc.repo.CreateProfile(ctx, p)
	if err != nil {
		return Profile{}, err
	}

	if p.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: p.FullName(), Address: p.Email}},
			Subject:      "Welcome to " + svc.conf.AppName,
			TemplateName: "welcome",
			TemplateData: p,
		})
	}
	return p, nil
}

func (svc *Service) Update(ctx context.Context, id string, up UpdateProfile) (Profile, error) {
	p := Profile{
		ID:        id,
		FirstName: up.FirstName,
		LastName:  up.LastName,
		UpdatedAt: time.Now().UTC(),
	}
	if up.ContactNumber != "" {
		p.ContactNumber.SetValid(up.ContactNumber)
	}
	if up.Address != "" {
		p.Address.SetValid(up.Address)
	}
	if up.AvatarURL != "" {
		p.AvatarURL.SetValid(up.AvatarURL)
	}
	return svc.repo.UpdateProfile(ctx, p, nil)
}

// Approve marks a teacher profile as approved and notifies the teacher.
// This is the administrative side of the teacher gate; the auth core
// only ever reads the flag.
func (svc *Service) Approve(ctx context.Context, id string) (Profile, error) {
	p, err := svc.repo.GetProfile(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if !p.IsTeacher() {
		return Profile{}, ErrNotTeacher
	}
	if p.IsApproved {
		return p, nil
	}

	approved := true
	p, err = svc.repo.UpdateProfile(ctx, Profile{ID: id, UpdatedAt: time.Now().UTC()}, &approved)
	if err != nil {
		return Profile{}, errors.Wrap(err, "approving teacher")
	}

	if p.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: p.FullName(), Address: p.Email}},
			Subject:      "Your teacher account has been approved",
			TemplateName: "teacher-approved",
			TemplateData: p,
		})
	}
	return p, nil
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Profile, error) {
	filter.Clean()
	return svc.repo.FilterProfiles(ctx, filter)
}

func (svc *Service) PendingTeachers(ctx context.Context) ([]Profile, error) {
	notApproved := false
	return svc.repo.FilterProfiles(ctx, QueryFilter{Role: RoleTeacher, IsApproved: &notApproved})
}

// Package pages holds the page controllers of the client: dashboard,
// profile and learning plans. Controllers keep their state behind a mutex,
// make network calls outside of it and expose immutable View snapshots.
package pages

import (
	"time"

	"github.com/anonto42/skillshare/internal/api"
	"github.com/anonto42/skillshare/internal/metrics"
	"github.com/anonto42/skillshare/internal/poller"
	"github.com/anonto42/skillshare/internal/session"
	"github.com/anonto42/skillshare/validators"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators shared by every page of one client session.
type Deps struct {
	API          *api.Client
	Sessions     *session.Manager
	Validator    *validators.CustomValidator
	Logger       logrus.FieldLogger
	Metrics      *metrics.Metrics
	PollInterval time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Validator == nil {
		d.Validator = validators.NewValidator()
	}
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.PollInterval <= 0 {
		d.PollInterval = poller.DefaultInterval
	}
	return d
}

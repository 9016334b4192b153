package family

import (
	"context"
	"strings"

	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/logger"
	"github.com/tphakala/eyedrop-checker/internal/observability/metrics"
)

// Directory resolves the addresses registered by an owner.
type Directory interface {
	LookupByOwner(ctx context.Context, owner string) ([]string, error)
}

// EscalatorConfig configures an Escalator. Directory and Metrics may be nil.
type EscalatorConfig struct {
	Owner     string
	Self      string
	Directory Directory
	Messenger Messenger
	Metrics   *metrics.FamilyMetrics
}

// Escalator sends an escalation to the acting user and their family members.
type Escalator struct {
	cfg EscalatorConfig
	log logger.Logger
}

// NewEscalator validates cfg and returns an Escalator.
func NewEscalator(cfg EscalatorConfig) (*Escalator, error) {
	if cfg.Messenger == nil {
		return nil, errors.Newf("family escalator needs a messenger").
			Component("family").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return &Escalator{
		cfg: cfg,
		log: GetLogger().With(logger.String("owner", cfg.Owner)),
	}, nil
}

// Recipients returns the self address followed by the owner's family addresses,
// without blanks or duplicates. A failed directory lookup still yields self.
func (e *Escalator) Recipients(ctx context.Context) []string {
	addrs := []string{e.cfg.Self}
	if e.cfg.Directory != nil && e.cfg.Owner != "" {
		family, err := e.cfg.Directory.LookupByOwner(ctx, e.cfg.Owner)
		if err != nil {
			e.log.Warn("family lookup failed, escalating to self only", logger.Error(err))
		} else {
			addrs = append(addrs, family...)
		}
	}
	return dedupAddresses(addrs)
}

// Escalate sends message to every recipient.
func (e *Escalator) Escalate(ctx context.Context, message string) error {
	recipients := e.Recipients(ctx)
	if len(recipients) == 0 {
		e.log.Warn("no escalation recipients")
		return nil
	}

	err := e.cfg.Messenger.Send(ctx, recipients, message, KindEscalation)
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.RecordSent(KindEscalation, status, len(recipients))
	}
	if err != nil {
		return errors.New(err).
			Component("family").
			Category(errors.CategoryNotification).
			Context("recipients", len(recipients)).
			Build()
	}
	e.log.Info("escalation sent", logger.Int("recipients", len(recipients)))
	return nil
}

func dedupAddresses(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

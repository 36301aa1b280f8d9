package logappender

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/Ahmed-Sermani/go-pagerank/events"
	"github.com/Ahmed-Sermani/go-pagerank/objstore"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const (
	defaultLogPrefix = "service2-logs"
	defaultLogObject = "forbidden_requests.log"

	logContentType = "text/plain; charset=utf-8"
)

// Config encapsulates the settings for configuring the log appender service.
type Config struct {
	// Subscriber delivers the blocked request events.
	Subscriber events.Subscriber

	// Store holds the log object.
	Store objstore.Store

	// The log object is stored as <LogPrefix>/<LogObject>. They default
	// to service2-logs and forbidden_requests.log.
	LogPrefix string
	LogObject string

	// The clock used for the logged_at timestamps. Defaults to the wall
	// clock.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Subscriber == nil {
		err = multierror.Append(err, xerrors.Errorf("event subscriber has not been provided"))
	}
	if cfg.Store == nil {
		err = multierror.Append(err, xerrors.Errorf("object store has not been provided"))
	}
	if cfg.LogPrefix == "" {
		cfg.LogPrefix = defaultLogPrefix
	}
	if cfg.LogObject == "" {
		cfg.LogObject = defaultLogObject
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		cfg.Logger = logrus.NewEntry(l)
	}
	return err
}

// Entry is a single line of the blocked request log.
type Entry struct {
	Service    string `json:"service"`
	EventType  string `json:"event_type"`
	Country    string `json:"country"`
	File       string `json:"file"`
	Path       string `json:"path"`
	RemoteAddr string `json:"remote_addr"`
	EventTS    string `json:"event_ts"`
	LoggedAt   string `json:"logged_at"`
}

// Service appends every received blocked request event to a log object.
type Service struct {
	cfg    Config
	object string

	// Appending is a read-modify-write of the log object; handlers may run
	// concurrently.
	mu sync.Mutex
}

// NewService creates a new log appender service instance with the
// specified config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("log appender service: config validation failed: %w", err)
	}
	return &Service{
		cfg:    cfg,
		object: objstore.Join(cfg.LogPrefix, cfg.LogObject),
	}, nil
}

// Name implements service.Service
func (svc *Service) Name() string { return "log-appender" }

// Run implements service.Service
func (svc *Service) Run(ctx context.Context) error {
	svc.cfg.Logger.WithField("object", svc.object).Info("listening for blocked request events")
	defer svc.cfg.Logger.Info("stopped service")
	return svc.cfg.Subscriber.Receive(ctx, svc.handle)
}

func (svc *Service) handle(ctx context.Context, msg events.Message) {
	e, err := events.Decode(msg.Data())
	if err != nil {
		// Redelivering an event that can never be decoded would loop forever.
		svc.cfg.Logger.WithField("data", string(msg.Data())).WithError(err).Error("dropping malformed event")
		msg.Ack()
		return
	}

	entry := svc.entryFor(e)
	svc.cfg.Logger.WithFields(logrus.Fields{
		"country":     entry.Country,
		"file":        entry.File,
		"path":        entry.Path,
		"remote_addr": entry.RemoteAddr,
		"event_ts":    entry.EventTS,
	}).Info("forbidden request blocked")

	if err = svc.Append(ctx, entry); err != nil {
		svc.cfg.Logger.WithError(err).Error("could not append event to log; event will be redelivered")
		msg.Nack()
		return
	}
	msg.Ack()
}

func (svc *Service) entryFor(e events.BlockedRequest) Entry {
	entry := Entry{
		Service:    svc.Name(),
		EventType:  e.Reason,
		Country:    e.Country,
		File:       e.File,
		Path:       e.Path,
		RemoteAddr: e.RemoteAddr,
		LoggedAt:   svc.cfg.Clock.Now().UTC().Format(time.RFC3339Nano),
	}
	if entry.EventType == "" {
		entry.EventType = events.ReasonForbiddenCountry
	}
	if entry.Country == "" {
		entry.Country = "unknown"
	}
	if entry.File == "" {
		entry.File = "unknown"
	}
	if e.Timestamp.IsZero() {
		entry.EventTS = entry.LoggedAt
	} else {
		entry.EventTS = e.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return entry
}

// Append adds entry as a JSON line at the end of the log object. A missing
// log object is created.
func (svc *Service) Append(ctx context.Context, entry Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return xerrors.Errorf("append log entry: %w", err)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	existing, err := svc.cfg.Store.Get(ctx, svc.object)
	if err != nil && !xerrors.Is(err, objstore.ErrNotFound) {
		return xerrors.Errorf("append log entry: %w", err)
	}

	content := make([]byte, 0, len(existing)+len(line)+1)
	content = append(content, existing...)
	content = append(content, line...)
	content = append(content, '\n')
	if err = svc.cfg.Store.Put(ctx, svc.object, content, logContentType); err != nil {
		return xerrors.Errorf("append log entry: %w", err)
	}
	return nil
}

package frontend

import (
	"context"
	"io"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/Ahmed-Sermani/go-pagerank/events"
	"github.com/Ahmed-Sermani/go-pagerank/objstore"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"
	"golang.org/x/xerrors"
)

const (
	defaultMaxConnections = 256
	defaultPublishTimeout = 5 * time.Second

	plainTextContentType = "text/plain; charset=utf-8"
	htmlContentType      = "text/html; charset=utf-8"
)

// forbiddenCountries lists the values of the X-country header for which
// requests are refused.
var forbiddenCountries = map[string]struct{}{
	"North Korea": {},
	"Iran":        {},
	"Cuba":        {},
	"Myanmar":     {},
	"Iraq":        {},
	"Libya":       {},
	"Sudan":       {},
	"Zimbabwe":    {},
	"Syria":       {},
}

// Config encapsulates the settings for configuring the front-end service.
type Config struct {
	// The address to listen for incoming requests.
	ListenAddr string

	// The maximum number of concurrently served connections. If not
	// specified, a default value of 256 will be used instead.
	MaxConnections int

	// Store provides access to the page objects.
	Store objstore.Store

	// Prefix is the object prefix of the page objects.
	Prefix string

	// Publisher receives an event for every refused request.
	Publisher events.Publisher

	// The maximum time to wait for an event to be published. If not
	// specified, a default value of 5s will be used instead.
	PublishTimeout time.Duration

	// The clock used for event timestamps. Defaults to the wall clock.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.ListenAddr == "" {
		err = multierror.Append(err, xerrors.Errorf("listen address has not been specified"))
	}
	if cfg.Store == nil {
		err = multierror.Append(err, xerrors.Errorf("object store has not been provided"))
	}
	if cfg.Publisher == nil {
		err = multierror.Append(err, xerrors.Errorf("event publisher has not been provided"))
	}
	if cfg.MaxConnections < 0 {
		err = multierror.Append(err, xerrors.Errorf("max connections must not be negative"))
	} else if cfg.MaxConnections == 0 {
		cfg.MaxConnections = defaultMaxConnections
	}
	if cfg.PublishTimeout < 0 {
		err = multierror.Append(err, xerrors.Errorf("publish timeout must not be negative"))
	} else if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		l := logrus.New()
		l.Out = io.Discard
		cfg.Logger = logrus.NewEntry(l)
	}
	cfg.Prefix = objstore.TrimPrefix(cfg.Prefix)
	return err
}

// Service serves page objects over HTTP to clients outside the forbidden
// countries.
type Service struct {
	cfg Config
}

// NewService creates a new front-end service instance with the specified
// config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("front-end service: config validation failed: %w", err)
	}
	return &Service{cfg: cfg}, nil
}

// Name implements service.Service
func (svc *Service) Name() string { return "front-end" }

// Run implements service.Service
func (svc *Service) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", svc.cfg.ListenAddr)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	srv := &http.Server{
		Addr:              svc.cfg.ListenAddr,
		Handler:           svc,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	svc.cfg.Logger.WithField("addr", l.Addr().String()).Info("listening for incoming requests")
	if err = srv.Serve(netutil.LimitListener(l, svc.cfg.MaxConnections)); err == http.ErrServerClosed {
		err = nil
	}
	return err
}

// ServeHTTP serves the page object named by the file query parameter or,
// if missing, by the last segment of the request path.
func (svc *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		svc.logEvent("not_implemented", logrus.Fields{"method": r.Method, "path": r.URL.Path})
		writePlainText(w, http.StatusNotImplemented, "Not Implemented\n")
		return
	}

	file := svc.fileName(r)
	country := strings.TrimSpace(r.Header.Get("X-country"))
	if _, forbidden := forbiddenCountries[country]; forbidden {
		svc.refuse(w, r, country, file)
		return
	}

	if file == "" {
		svc.logEvent("bad_request", logrus.Fields{"reason": "missing_file_param"})
		writePlainText(w, http.StatusBadRequest, "Missing file name\n")
		return
	}
	if !isBaseName(file) {
		svc.logEvent("bad_request", logrus.Fields{"reason": "invalid_file_name", "file": file})
		writePlainText(w, http.StatusBadRequest, "Invalid file name\n")
		return
	}

	object := objstore.Join(svc.cfg.Prefix, file)
	data, err := svc.cfg.Store.Get(r.Context(), object)
	if err != nil {
		if xerrors.Is(err, objstore.ErrNotFound) {
			svc.logEvent("not_found", logrus.Fields{"file": file, "object": object})
			writePlainText(w, http.StatusNotFound, "Not Found\n")
			return
		}
		if xerrors.Is(err, objstore.ErrInvalidName) {
			svc.logEvent("bad_request", logrus.Fields{"reason": "invalid_file_name", "file": file})
			writePlainText(w, http.StatusBadRequest, "Invalid file name\n")
			return
		}
		svc.cfg.Logger.WithFields(logrus.Fields{"event_type": "fetch_failed", "object": object}).WithError(err).Error("could not retrieve page object")
		writePlainText(w, http.StatusInternalServerError, "Internal Server Error\n")
		return
	}

	svc.logEvent("ok", logrus.Fields{"file": file, "object": object, "size": len(data)})
	w.Header().Set("Content-Type", htmlContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (svc *Service) refuse(w http.ResponseWriter, r *http.Request, country, file string) {
	e := events.NewBlockedRequest(events.ReasonForbiddenCountry, country, file, r.URL.Path, clientIP(r), svc.cfg.Clock.Now())

	ctx, cancel := context.WithTimeout(r.Context(), svc.cfg.PublishTimeout)
	defer cancel()
	if err := svc.cfg.Publisher.Publish(ctx, e); err != nil {
		svc.cfg.Logger.WithFields(logrus.Fields{"event_type": "publish_failed", "country": country}).WithError(err).Error("could not publish blocked request event")
		writePlainText(w, http.StatusInternalServerError, "Internal Server Error\n")
		return
	}

	svc.logEvent("forbidden_country", logrus.Fields{"country": country, "file": file, "remote_addr": e.RemoteAddr})
	writePlainText(w, http.StatusBadRequest, "Permission denied\n")
}

// fileName returns the requested file name with any leading pages prefix
// removed.
func (svc *Service) fileName(r *http.Request) string {
	file := strings.TrimSpace(r.URL.Query().Get("file"))
	if file == "" {
		segments := strings.Split(r.URL.Path, "/")
		for i := len(segments) - 1; i >= 0; i-- {
			if segments[i] != "" {
				file = segments[i]
				break
			}
		}
	}

	file = strings.TrimLeft(file, "/")
	if svc.cfg.Prefix != "" {
		file = strings.TrimPrefix(file, svc.cfg.Prefix+"/")
	}
	return file
}

// isBaseName returns true if file names a single object directly under the
// pages prefix.
func isBaseName(file string) bool {
	if file == "." || file == ".." || strings.ContainsAny(file, `/\`) {
		return false
	}
	return path.Base(file) == file
}

func (svc *Service) logEvent(eventType string, fields logrus.Fields) {
	svc.cfg.Logger.WithFields(fields).WithField("event_type", eventType).Info("handled request")
}

// clientIP returns the first X-Forwarded-For entry, falling back to the
// address of the peer.
func clientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writePlainText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", plainTextContentType)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

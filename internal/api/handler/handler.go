package handler

import (
	"log/slog"

	"github.com/ctpipe/uploadq/internal/notify"
	"github.com/ctpipe/uploadq/internal/platform"
	"github.com/ctpipe/uploadq/internal/publisher"
	"github.com/ctpipe/uploadq/internal/queue"
)

// Dispatcher hands created jobs to the upload pool.
type Dispatcher interface {
	Enqueue(jobID string) error
}

// Dependencies holds all dependencies needed by handlers.
type Dependencies struct {
	Logger        *slog.Logger
	Store         queue.Store
	Publisher     *publisher.Publisher
	Platforms     *platform.Registry
	Dispatcher    Dispatcher
	Notifier      notify.Notifier
	UploadDir     string
	MaxUploadSize int64
}

// UploadHandler handles the upload-queue HTTP surface.
type UploadHandler struct {
	logger        *slog.Logger
	store         queue.Store
	publisher     *publisher.Publisher
	platforms     *platform.Registry
	dispatcher    Dispatcher
	notifier      notify.Notifier
	uploadDir     string
	maxUploadSize int64
}

// NewUploadHandler creates a new UploadHandler instance.
func NewUploadHandler(deps *Dependencies) *UploadHandler {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &UploadHandler{
		logger:        deps.Logger,
		store:         deps.Store,
		publisher:     deps.Publisher,
		platforms:     deps.Platforms,
		dispatcher:    deps.Dispatcher,
		notifier:      notifier,
		uploadDir:     deps.UploadDir,
		maxUploadSize: deps.MaxUploadSize,
	}
}

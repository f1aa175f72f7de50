package orders

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/orderstack/orderstack/config"
	"github.com/orderstack/orderstack/dto"
	coreerrors "github.com/orderstack/orderstack/internal/errors"
	"github.com/orderstack/orderstack/internal/logger"
	"github.com/orderstack/orderstack/internal/models"
	"github.com/orderstack/orderstack/internal/repository"
	"github.com/orderstack/orderstack/internal/tracing"
	"github.com/orderstack/orderstack/internal/utils"
	"github.com/orderstack/orderstack/interfaces"
	"github.com/orderstack/orderstack/services/classifier"
)

const dayLayout = "2006-01-02"

// Service runs the ingestion pipeline: search the mailbox for a
// sender's messages on a given day, pull the spreadsheet attachments
// into a classified folder tree, archive it, and file the messages
// away into the company folder.
type Service struct {
	log        logger.Logger
	senders    repository.SenderRepository
	sessions   interfaces.SessionFactory
	progress   interfaces.ProgressRegistry
	events     interfaces.JobEventPublisher
	storage    interfaces.StorageService
	storageCfg config.StorageConfig
	mailbox    string

	// one mailbox session at a time
	mu sync.Mutex
}

func NewService(
	log logger.Logger,
	senders repository.SenderRepository,
	sessions interfaces.SessionFactory,
	progress interfaces.ProgressRegistry,
	events interfaces.JobEventPublisher,
	storage interfaces.StorageService,
	storageCfg config.StorageConfig,
	mailbox string,
) interfaces.OrderService {
	return &Service{
		log:        log,
		senders:    senders,
		sessions:   sessions,
		progress:   progress,
		events:     events,
		storage:    storage,
		storageCfg: storageCfg,
		mailbox:    mailbox,
	}
}

// Run executes one ingestion job synchronously. Progress events are
// published to the owner's stream as the job advances; the terminal
// event carries the result or the error.
func (s *Service) Run(ctx context.Context, ownerID string, request dto.FetchOrdersRequest) (*dto.JobResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Service.Run")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagOwner(span, ownerID)
	tracing.TagSender(span, request.SenderID)

	day, err := time.ParseInLocation(dayLayout, request.Day, time.UTC)
	if err != nil {
		tracing.TraceErr(span, coreerrors.ErrInvalidDate)
		return nil, coreerrors.ErrInvalidDate
	}

	sender, err := s.senders.GetByID(ctx, request.SenderID)
	if err != nil {
		if errors.Is(err, repository.ErrSenderNotFound) {
			err = coreerrors.ErrSenderNotFound
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	jobID := utils.GenerateNanoIDWithPrefix("job", 16)
	tracing.TagJob(span, jobID)
	s.log.Infof("Starting ingestion job %s for sender %s on %s", jobID, sender.ID, request.Day)

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.run(ctx, ownerID, jobID, sender, day, request.SaveFolder)
	if err != nil {
		tracing.TraceErr(span, err)
		s.progress.Publish(ownerID, dto.JobProgress{
			JobID:  jobID,
			Status: "failed",
			Done:   true,
			Error:  err.Error(),
		})
		if s.events != nil {
			if pubErr := s.events.PublishJobFailed(ctx, jobID, err.Error()); pubErr != nil {
				s.log.Errorf("Failed to publish job failure event: %v", pubErr)
			}
		}
		return nil, err
	}

	s.progress.Publish(ownerID, dto.JobProgress{
		JobID:    jobID,
		Status:   "done",
		Progress: 100,
		Done:     true,
		Result:   result,
	})
	if s.events != nil {
		if pubErr := s.events.PublishJobCompleted(ctx, result); pubErr != nil {
			s.log.Errorf("Failed to publish job completion event: %v", pubErr)
		}
	}
	return result, nil
}

func (s *Service) run(ctx context.Context, ownerID, jobID string, sender *models.Sender, day time.Time, saveFolder bool) (*dto.JobResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Service.run")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagJob(span, jobID)

	s.publish(ownerID, jobID, "connecting", 2)

	session := s.sessions.NewSession()
	if err := session.Connect(ctx); err != nil {
		return nil, err
	}
	sessionOpen := true
	closeSession := func() {
		if !sessionOpen {
			return
		}
		sessionOpen = false
		if err := session.Close(); err != nil {
			s.log.Warnf("Closing mailbox session: %v", err)
		}
	}
	defer closeSession()

	if err := session.Open(ctx, s.mailbox); err != nil {
		return nil, err
	}

	s.publish(ownerID, jobID, "searching", 5)

	uids, err := session.SearchFrom(ctx, sender.Email, day)
	if err != nil {
		return nil, err
	}
	span.SetTag("messages", len(uids))

	if len(uids) == 0 {
		closeSession()
		return &dto.JobResult{
			JobID:       jobID,
			Success:     false,
			MessagesNum: 0,
			Message:     fmt.Sprintf("no messages from %s on %s", sender.Email, day.Format(dayLayout)),
		}, nil
	}

	mainFolder := fmt.Sprintf("%s_%s", classifier.SanitizeFolderName(sender.CompanyName), day.Format(dayLayout))
	jobRoot := filepath.Join(s.storageCfg.WorkDir, mainFolder)

	// a rerun for the same sender and day replaces the previous folder
	if err := os.RemoveAll(jobRoot); err != nil {
		return nil, errors.Wrapf(err, "clearing %s", jobRoot)
	}
	if err := os.MkdirAll(jobRoot, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", jobRoot)
	}

	var (
		fetched []dto.FetchedFile
		emails  []dto.EmailSummary
	)
	for i, uid := range uids {
		msg, err := session.FetchOne(ctx, uid)
		if err != nil {
			return nil, err
		}

		base := i
		files, err := s.materializeMessage(ctx, session, msg, sender, jobRoot, func(done, total int) {
			s.publish(ownerID, jobID, "downloading", messagePercent(base, done, total, len(uids)))
		})
		if err != nil {
			return nil, err
		}

		fetched = append(fetched, files...)
		emails = append(emails, summarize(msg, files))
		s.publish(ownerID, jobID, "downloading", messagePercent(i+1, 0, 1, len(uids)))
	}

	s.publish(ownerID, jobID, "filing", 95)

	companyFolder := classifier.SanitizeFolderName(sender.CompanyName)
	if err := session.EnsureFolder(ctx, companyFolder); err != nil {
		return nil, err
	}
	if err := session.MoveMessages(ctx, uids, companyFolder); err != nil {
		return nil, err
	}

	// the session is no longer needed; archive with it closed
	closeSession()

	s.publish(ownerID, jobID, "archiving", 97)

	zipPath, err := buildArchive(jobRoot, s.storageCfg.DownloadsDir, mainFolder)
	if err != nil {
		return nil, err
	}

	downloadURL := "/downloads/" + filepath.Base(zipPath)
	if s.storage != nil {
		data, readErr := os.ReadFile(zipPath)
		if readErr != nil {
			s.log.Errorf("Reading archive for upload: %v", readErr)
		} else if upErr := s.storage.Upload(ctx, filepath.Base(zipPath), data, "application/zip"); upErr != nil {
			s.log.Errorf("Uploading archive to object storage: %v", upErr)
		} else if publicURL := s.storage.GetPublicURL(filepath.Base(zipPath)); publicURL != "" {
			downloadURL = publicURL
		}
	}

	if !saveFolder {
		if err := os.RemoveAll(jobRoot); err != nil {
			s.log.Warnf("Removing working folder %s: %v", jobRoot, err)
		}
	}

	s.log.Infof("Ingestion job %s finished: %d messages, %d attachments", jobID, len(uids), len(fetched))

	return &dto.JobResult{
		JobID:          jobID,
		Success:        true,
		MessagesNum:    len(uids),
		FetchedFiles:   fetched,
		Emails:         emails,
		MainFolderName: mainFolder,
		DownloadURL:    downloadURL,
		Message:        fmt.Sprintf("fetched %d messages from %s", len(uids), sender.Email),
	}, nil
}

func (s *Service) publish(ownerID, jobID, status string, percent int) {
	s.progress.Publish(ownerID, dto.JobProgress{
		JobID:    jobID,
		Status:   status,
		Progress: percent,
	})
}

// messagePercent maps download progress into the 5..95 band so the
// stream stays monotonic across messages and their attachments.
func messagePercent(messagesDone, attachmentsDone, attachmentsTotal, totalMessages int) int {
	if totalMessages == 0 {
		return 95
	}
	fraction := float64(messagesDone)
	if attachmentsTotal > 0 {
		fraction += float64(attachmentsDone) / float64(attachmentsTotal)
	}
	percent := 5 + int(90*fraction/float64(totalMessages))
	if percent > 95 {
		percent = 95
	}
	return percent
}

func summarize(msg *goimap.Message, files []dto.FetchedFile) dto.EmailSummary {
	summary := dto.EmailSummary{Attachments: files}
	if msg.Envelope != nil {
		summary.Subject = msg.Envelope.Subject
		summary.Date = msg.Envelope.Date
		if len(msg.Envelope.From) > 0 {
			summary.From = msg.Envelope.From[0].Address()
		}
	}
	return summary
}

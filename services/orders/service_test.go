package orders

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/orderstack/orderstack/config"
	"github.com/orderstack/orderstack/dto"
	coreerrors "github.com/orderstack/orderstack/internal/errors"
	"github.com/orderstack/orderstack/internal/logger"
	"github.com/orderstack/orderstack/internal/models"
	"github.com/orderstack/orderstack/internal/repository"
	"github.com/orderstack/orderstack/interfaces"
	"github.com/orderstack/orderstack/services/progress"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func workbookBytes(t *testing.T, cells map[string]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	for cell, value := range cells {
		require.NoError(t, f.SetCellValue("Sheet1", cell, value))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())
	return buf.Bytes()
}

func testSender() *models.Sender {
	return &models.Sender{
		ID:          "sndr_test",
		CompanyName: "FoodCo",
		Email:       "orders@foodco.kz",
		Cities: models.JSONMap{
			"almaty": "Almaty",
			"astana": "Astana",
		},
		CellCoordinates: models.StringList{"B2"},
		SupplierProbes: models.SupplierProbes{
			{Supplier: "FoodCo", Candidates: []string{"foodco"}, Cells: []string{"A1"}},
		},
	}
}

// fakeSenderRepo serves a single profile.
type fakeSenderRepo struct {
	sender *models.Sender
}

func (f *fakeSenderRepo) Create(ctx context.Context, sender *models.Sender) error { return nil }
func (f *fakeSenderRepo) GetByID(ctx context.Context, id string) (*models.Sender, error) {
	if f.sender != nil && f.sender.ID == id {
		return f.sender, nil
	}
	return nil, repository.ErrSenderNotFound
}
func (f *fakeSenderRepo) List(ctx context.Context) ([]models.Sender, error) { return nil, nil }
func (f *fakeSenderRepo) Update(ctx context.Context, sender *models.Sender) error {
	return nil
}
func (f *fakeSenderRepo) Delete(ctx context.Context, id string) error { return nil }

// fakeSession replays a scripted mailbox.
type fakeSession struct {
	uids     []uint32
	messages map[uint32]*goimap.Message
	parts    map[uint32][]byte

	searchErr error

	ensuredFolders []string
	movedTo        string
	movedUIDs      []uint32
	closed         bool
}

func (f *fakeSession) Connect(ctx context.Context) error              { return nil }
func (f *fakeSession) Open(ctx context.Context, mailbox string) error { return nil }
func (f *fakeSession) SearchFrom(ctx context.Context, pattern string, day time.Time) ([]uint32, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.uids, nil
}

func (f *fakeSession) FetchOne(ctx context.Context, uid uint32) (*goimap.Message, error) {
	msg, ok := f.messages[uid]
	if !ok {
		return nil, errors.Errorf("no message %d", uid)
	}
	return msg, nil
}

func (f *fakeSession) DownloadPart(ctx context.Context, uid uint32, part interfaces.PartRef) ([]byte, error) {
	data, ok := f.parts[uid]
	if !ok {
		return nil, errors.Errorf("no part for %d", uid)
	}
	return data, nil
}

func (f *fakeSession) EnsureFolder(ctx context.Context, name string) error {
	f.ensuredFolders = append(f.ensuredFolders, name)
	return nil
}

func (f *fakeSession) MoveMessages(ctx context.Context, uids []uint32, folder string) error {
	f.movedTo = folder
	f.movedUIDs = uids
	return nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

type fakeFactory struct {
	session *fakeSession
}

func (f *fakeFactory) NewSession() interfaces.MailboxSession { return f.session }

func orderMessage(uid uint32, attachmentName string) *goimap.Message {
	return &goimap.Message{
		Uid: uid,
		Envelope: &goimap.Envelope{
			Subject: "Заказ на завтра",
			Date:    time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC),
			From:    []*goimap.Address{{MailboxName: "orders", HostName: "foodco.kz"}},
		},
		BodyStructure: &goimap.BodyStructure{
			MIMEType:    "multipart",
			MIMESubType: "mixed",
			Parts: []*goimap.BodyStructure{
				{
					MIMEType:    "text",
					MIMESubType: "plain",
				},
				{
					MIMEType:          "application",
					MIMESubType:       "octet-stream",
					Disposition:       "attachment",
					DispositionParams: map[string]string{"filename": attachmentName},
					Encoding:          "base64",
				},
			},
		},
	}
}

func newTestService(t *testing.T, session *fakeSession) (interfaces.OrderService, interfaces.ProgressRegistry, config.StorageConfig) {
	t.Helper()

	storageCfg := config.StorageConfig{
		WorkDir:      filepath.Join(t.TempDir(), "work"),
		DownloadsDir: filepath.Join(t.TempDir(), "downloads"),
	}
	registry := progress.NewRegistry(getLogger())

	svc := NewService(
		getLogger(),
		&fakeSenderRepo{sender: testSender()},
		&fakeFactory{session: session},
		registry,
		nil,
		nil,
		storageCfg,
		"INBOX",
	)
	return svc, registry, storageCfg
}

func TestRun_InvalidDate(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeSession{})

	_, err := svc.Run(context.Background(), "user-1", dto.FetchOrdersRequest{
		SenderID: "sndr_test",
		Day:      "10.05.2024",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerrors.ErrInvalidDate))
}

func TestRun_SenderNotFound(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeSession{})

	_, err := svc.Run(context.Background(), "user-1", dto.FetchOrdersRequest{
		SenderID: "sndr_missing",
		Day:      "2024-05-10",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerrors.ErrSenderNotFound))
}

func TestRun_NoMessages(t *testing.T) {
	session := &fakeSession{}
	svc, _, storageCfg := newTestService(t, session)

	result, err := svc.Run(context.Background(), "user-1", dto.FetchOrdersRequest{
		SenderID: "sndr_test",
		Day:      "2024-05-10",
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.MessagesNum)
	assert.Empty(t, result.DownloadURL)
	assert.True(t, session.closed)
	assert.Empty(t, session.ensuredFolders)

	// no working folder is created for an empty day
	_, err = os.Stat(filepath.Join(storageCfg.WorkDir, "FoodCo_2024-05-10"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_FullPipeline(t *testing.T) {
	data := workbookBytes(t, map[string]string{
		"B2": "г. almaty",
		"A1": "ТОО FoodCo",
	})
	session := &fakeSession{
		uids:     []uint32{7},
		messages: map[uint32]*goimap.Message{7: orderMessage(7, "заказ.xlsx")},
		parts:    map[uint32][]byte{7: data},
	}
	svc, _, storageCfg := newTestService(t, session)

	result, err := svc.Run(context.Background(), "user-1", dto.FetchOrdersRequest{
		SenderID:   "sndr_test",
		Day:        "2024-05-10",
		SaveFolder: true,
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.MessagesNum)
	assert.Equal(t, "FoodCo_2024-05-10", result.MainFolderName)
	assert.Equal(t, "/downloads/FoodCo_2024-05-10.zip", result.DownloadURL)

	require.Len(t, result.FetchedFiles, 1)
	assert.Equal(t, "заказ.xlsx", result.FetchedFiles[0].Filename)
	assert.Equal(t, "FoodCo", result.FetchedFiles[0].Supplier)
	assert.Equal(t, "Almaty", result.FetchedFiles[0].City)

	require.Len(t, result.Emails, 1)
	assert.Equal(t, "Заказ на завтра", result.Emails[0].Subject)
	assert.Equal(t, "orders@foodco.kz", result.Emails[0].From)

	// attachment lands under supplier/city and the archive is built
	saved := filepath.Join(storageCfg.WorkDir, "FoodCo_2024-05-10", "FoodCo", "Almaty", "заказ.xlsx")
	_, err = os.Stat(saved)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(storageCfg.DownloadsDir, "FoodCo_2024-05-10.zip"))
	assert.NoError(t, err)

	// messages are filed into the company folder and the session closed
	assert.Equal(t, []string{"FoodCo"}, session.ensuredFolders)
	assert.Equal(t, "FoodCo", session.movedTo)
	assert.Equal(t, []uint32{7}, session.movedUIDs)
	assert.True(t, session.closed)
}

func TestRun_SkipsNonSpreadsheetAttachments(t *testing.T) {
	session := &fakeSession{
		uids:     []uint32{3},
		messages: map[uint32]*goimap.Message{3: orderMessage(3, "прайс.csv")},
	}
	svc, _, _ := newTestService(t, session)

	result, err := svc.Run(context.Background(), "user-1", dto.FetchOrdersRequest{
		SenderID: "sndr_test",
		Day:      "2024-05-10",
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.MessagesNum)
	assert.Empty(t, result.FetchedFiles)
}

func TestRun_RerunReplacesWorkingFolder(t *testing.T) {
	data := workbookBytes(t, map[string]string{
		"B2": "almaty",
		"A1": "foodco",
	})
	session := &fakeSession{
		uids:     []uint32{7},
		messages: map[uint32]*goimap.Message{7: orderMessage(7, "заказ.xlsx")},
		parts:    map[uint32][]byte{7: data},
	}
	svc, _, _ := newTestService(t, session)

	request := dto.FetchOrdersRequest{
		SenderID:   "sndr_test",
		Day:        "2024-05-10",
		SaveFolder: true,
	}

	first, err := svc.Run(context.Background(), "user-1", request)
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), "user-1", request)
	require.NoError(t, err)

	assert.Equal(t, first.MainFolderName, second.MainFolderName)
	assert.Len(t, second.FetchedFiles, 1)
}

func TestRun_ProgressIsMonotonicAndTerminal(t *testing.T) {
	data := workbookBytes(t, map[string]string{
		"B2": "almaty",
		"A1": "foodco",
	})
	session := &fakeSession{
		uids: []uint32{1, 2},
		messages: map[uint32]*goimap.Message{
			1: orderMessage(1, "a.xlsx"),
			2: orderMessage(2, "b.xlsx"),
		},
		parts: map[uint32][]byte{1: data, 2: data},
	}
	svc, registry, _ := newTestService(t, session)

	events, cancel := registry.Subscribe("user-1")
	defer cancel()

	_, err := svc.Run(context.Background(), "user-1", dto.FetchOrdersRequest{
		SenderID: "sndr_test",
		Day:      "2024-05-10",
	})
	require.NoError(t, err)

	var received []dto.JobProgress
	for len(events) > 0 {
		received = append(received, <-events)
	}
	require.NotEmpty(t, received)

	last := 0
	for _, event := range received {
		if event.Progress > 0 {
			assert.GreaterOrEqual(t, event.Progress, last)
			last = event.Progress
		}
	}

	terminal := received[len(received)-1]
	assert.True(t, terminal.Done)
	assert.Equal(t, 100, terminal.Progress)
	require.NotNil(t, terminal.Result)
	assert.True(t, terminal.Result.Success)
}

func TestRun_SearchFailurePublishesFailedEvent(t *testing.T) {
	session := &fakeSession{searchErr: coreerrors.ErrConnectionRefused}
	svc, registry, _ := newTestService(t, session)

	events, cancel := registry.Subscribe("user-1")
	defer cancel()

	_, err := svc.Run(context.Background(), "user-1", dto.FetchOrdersRequest{
		SenderID: "sndr_test",
		Day:      "2024-05-10",
	})
	require.Error(t, err)
	assert.True(t, session.closed)

	var terminal dto.JobProgress
	for len(events) > 0 {
		terminal = <-events
	}
	assert.True(t, terminal.Done)
	assert.NotEmpty(t, terminal.Error)
}

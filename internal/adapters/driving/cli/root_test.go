package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// mockAttachments is a mock implementation of driving.AttachmentService.
type mockAttachments struct {
	files []domain.FileRecord
	batch *domain.UploadBatch
	err   error

	uploadWorkspace string
	uploadIntents   []domain.AttachmentIntent
	deleted         []string
	deletedWS       []string
	renamed         [2]string
	recovered       bool
	orphanAge       time.Duration
}

func (m *mockAttachments) Upload(
	_ context.Context,
	workspaceID string,
	intents []domain.AttachmentIntent,
) (*domain.UploadBatch, error) {
	m.uploadWorkspace = workspaceID
	m.uploadIntents = intents
	if m.err != nil {
		return nil, m.err
	}
	if m.batch != nil {
		return m.batch, nil
	}
	return &domain.UploadBatch{WorkspaceID: workspaceID, State: domain.BatchPromoted}, nil
}

func (m *mockAttachments) Files(_ context.Context, workspaceID string) ([]domain.FileRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	if workspaceID == "" {
		return m.files, nil
	}
	var out []domain.FileRecord
	for _, f := range m.files {
		if f.WorkspaceID == workspaceID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockAttachments) File(_ context.Context, id string) (*domain.FileRecord, error) {
	for i := range m.files {
		if m.files[i].ID == id {
			return &m.files[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockAttachments) DeleteFile(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return m.err
}

func (m *mockAttachments) DeleteWorkspace(_ context.Context, workspaceID string) error {
	m.deletedWS = append(m.deletedWS, workspaceID)
	return m.err
}

func (m *mockAttachments) Rename(_ context.Context, id, name string) error {
	m.renamed = [2]string{id, name}
	return m.err
}

func (m *mockAttachments) Recover(_ context.Context) (int, error) {
	m.recovered = true
	return 3, m.err
}

func (m *mockAttachments) SweepOrphans(_ context.Context, maxAge time.Duration) (int, error) {
	m.orphanAge = maxAge
	return 1, m.err
}

// mockConversations is a mock implementation of driving.ConversationService.
type mockConversations struct {
	history []domain.ChatMessage
	summary string
	err     error

	lastRef      domain.ConversationRef
	lastQuestion string
	lastFileID   string
}

func (m *mockConversations) Ask(
	_ context.Context,
	ref domain.ConversationRef,
	question string,
) (*domain.ChatMessage, error) {
	m.lastRef = ref
	m.lastQuestion = question
	if m.err != nil {
		return nil, m.err
	}
	return &domain.ChatMessage{
		User:    question,
		AI:      "the answer",
		Sources: []domain.Citation{{Title: "report.pdf", Page: 4}},
	}, nil
}

func (m *mockConversations) History(_ context.Context, ref domain.ConversationRef) ([]domain.ChatMessage, error) {
	m.lastRef = ref
	return m.history, m.err
}

func (m *mockConversations) Summary(_ context.Context, ref domain.ConversationRef, fileID string) (string, error) {
	m.lastRef = ref
	m.lastFileID = fileID
	return m.summary, m.err
}

// mockRetention is a mock implementation of driving.RetentionService.
type mockRetention struct {
	report *domain.SweepReport
	forced bool
}

func (m *mockRetention) Sweep(_ context.Context, force bool) (*domain.SweepReport, error) {
	m.forced = force
	return m.report, nil
}

// mockScheduler blocks in Start until the context ends.
type mockScheduler struct {
	mu      sync.Mutex
	started bool
	stopped bool
}

func (m *mockScheduler) Start(ctx context.Context) error {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	<-ctx.Done()
	return nil
}

func (m *mockScheduler) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

// mockListener is a mock implementation of driving.SummaryListener.
type mockListener struct {
	err error
}

func (m *mockListener) Run(ctx context.Context) error {
	if m.err != nil {
		return m.err
	}
	<-ctx.Done()
	return ctx.Err()
}

// mockSettings stores raw values and returns defaults for Get.
type mockSettings struct {
	settings domain.AppSettings
	values   map[string]any
	err      error
}

func (m *mockSettings) Get() domain.AppSettings {
	return m.settings
}

func (m *mockSettings) Set(key string, value any) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

// fakeWatcher returns as soon as Run is called.
type fakeWatcher struct {
	dir, workspace string
	closed         bool
	err            error
}

func (w *fakeWatcher) Run(_ context.Context) error {
	return w.err
}

func (w *fakeWatcher) Close() error {
	w.closed = true
	return nil
}

type testServices struct {
	attachments   *mockAttachments
	conversations *mockConversations
	retention     *mockRetention
	scheduler     *mockScheduler
	listener      *mockListener
	settings      *mockSettings
	watcher       *fakeWatcher
}

// setupTestServices installs mock services and resets flags. Everything is
// restored when the test ends.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	ts := &testServices{
		attachments: &mockAttachments{
			files: []domain.FileRecord{
				{
					ID:           "file-1",
					Source:       domain.FileSourceDevice,
					LocalURI:     "file:///tmp/report.pdf",
					OriginalName: "report.pdf",
					MimeType:     "application/pdf",
					Size:         1024,
					IsIndexed:    true,
					WorkspaceID:  "ws-1",
				},
				{
					ID:           "file-2",
					Source:       domain.FileSourceURL,
					OriginalURL:  "https://example.com/paper.pdf",
					OriginalName: "paper.pdf",
					IsIndexed:    true,
				},
			},
		},
		conversations: &mockConversations{},
		retention:     &mockRetention{report: &domain.SweepReport{SessionsScanned: 2, MessagesPruned: 5}},
		scheduler:     &mockScheduler{},
		listener:      &mockListener{},
		settings: &mockSettings{
			settings: domain.DefaultAppSettings(),
			values:   map[string]any{},
		},
	}

	SetServices(&Services{
		Attachments:     ts.attachments,
		Conversations:   ts.conversations,
		Retention:       ts.retention,
		Scheduler:       ts.scheduler,
		SummaryListener: ts.listener,
		Settings:        ts.settings,
		NewWatcher: func(dir, workspaceID string) DirectoryWatcher {
			ts.watcher = &fakeWatcher{dir: dir, workspace: workspaceID}
			return ts.watcher
		},
	})
	resetFlags()

	t.Cleanup(func() {
		SetServices(&Services{})
		resetFlags()
	})
	return ts
}

// resetFlags restores command flag variables, which persist between runs.
func resetFlags() {
	uploadURLs, uploadWebpages, uploadWorkspace = nil, nil, ""
	filesWorkspace, filesJSON = "", false
	workspaceYes = false
	chatQuestion, chatWorkspace, chatMore = "", "", 0
	sweepForce, sweepAll, sweepMaxAge = false, false, 30*time.Minute
	watchWorkspace = ""
	storageOverride, configDir = "", ""
}

// runCommand executes rootCmd with args and returns the combined output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCommandWithInput(t, "", args...)
}

// runCommandWithInput is runCommand with input on stdin.
func runCommandWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "docchat", rootCmd.Use)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{"upload", "files", "workspace", "chat", "sweep", "watch", "serve", "mcp", "config", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestExecute_BootstrapsAndCleansUp(t *testing.T) {
	ts := setupTestServices(t)
	SetServices(&Services{})

	var gotOpts Options
	cleaned := false
	boot := func(_ context.Context, opts Options) (*Services, func(), error) {
		gotOpts = opts
		return &Services{Attachments: ts.attachments}, func() { cleaned = true }, nil
	}
	t.Cleanup(func() { bootstrap = nil })

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"files", "list", "--storage", "memory", "--config-dir", "/tmp/cfg"})
	defer rootCmd.SetArgs(nil)

	err := Execute(context.Background(), boot)

	require.NoError(t, err)
	assert.Equal(t, "memory", gotOpts.Storage)
	assert.Equal(t, "/tmp/cfg", gotOpts.ConfigDir)
	assert.False(t, gotOpts.SettingsOnly)
	assert.True(t, cleaned)
	assert.Contains(t, buf.String(), "report.pdf")
}

func TestExecute_ConfigIsSettingsOnly(t *testing.T) {
	ts := setupTestServices(t)

	var gotOpts Options
	boot := func(_ context.Context, opts Options) (*Services, func(), error) {
		gotOpts = opts
		return &Services{Settings: ts.settings}, func() {}, nil
	}
	t.Cleanup(func() { bootstrap = nil })

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"config", "show"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, Execute(context.Background(), boot))
	assert.True(t, gotOpts.SettingsOnly)
}

func TestExecute_VersionSkipsBootstrap(t *testing.T) {
	setupTestServices(t)

	called := false
	boot := func(_ context.Context, _ Options) (*Services, func(), error) {
		called = true
		return &Services{}, nil, nil
	}
	t.Cleanup(func() { bootstrap = nil })

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, Execute(context.Background(), boot))
	assert.False(t, called)
}

func TestExecute_BootstrapFailure(t *testing.T) {
	setupTestServices(t)

	boot := func(_ context.Context, _ Options) (*Services, func(), error) {
		return nil, nil, domain.ErrRemoteUnavailable
	}
	t.Cleanup(func() { bootstrap = nil })

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"files", "list"})
	defer rootCmd.SetArgs(nil)

	err := Execute(context.Background(), boot)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.Contains(t, err.Error(), "startup failed")
}

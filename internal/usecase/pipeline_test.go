package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ImageMigrator/internal/domain"
)

type sliceSource struct {
	records []domain.InputRecord
	err     error
	pos     int
}

func (s *sliceSource) Next() (domain.InputRecord, error) {
	if s.pos < len(s.records) {
		rec := s.records[s.pos]
		s.pos++
		return rec, nil
	}
	if s.err != nil {
		return domain.InputRecord{}, s.err
	}
	return domain.InputRecord{}, io.EOF
}

type memReport struct {
	rows    []domain.ReportRow
	flushed bool
}

func (m *memReport) WriteRow(row domain.ReportRow) error {
	m.rows = append(m.rows, row)
	return nil
}

func (m *memReport) Flush() error {
	m.flushed = true
	return nil
}

type fakeFetcher struct {
	fail map[string]error
}

func (f fakeFetcher) Identify(rawURL string) (domain.ResourceIdentity, bool) {
	if rawURL == "https://cld.pt/short" {
		return domain.ResourceIdentity{}, false
	}
	return domain.ResourceIdentity{ID: "id", Filename: "f.png"}, true
}

func (f fakeFetcher) Fetch(_ context.Context, rawURL string, identity domain.ResourceIdentity) (string, error) {
	if err := f.fail[rawURL]; err != nil {
		return "", err
	}
	return "root/" + identity.ID + "/" + identity.Filename, nil
}

type fakeUploader struct {
	fail  map[string]error
	calls int
}

func (f *fakeUploader) Upload(_ context.Context, rawURL string) (domain.UploadResult, error) {
	f.calls++
	if err := f.fail[rawURL]; err != nil {
		return domain.UploadResult{}, err
	}
	return domain.UploadResult{Hotlink: "https://dest/x.png", DeleteLink: "https://dest/del"}, nil
}

type memLedger struct {
	entries []domain.LedgerEntry
	err     error
}

func (m *memLedger) Record(_ context.Context, e domain.LedgerEntry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

type memNotifier struct {
	messages []string
	ctxErrs  []error
}

func (m *memNotifier) PublishSummary(ctx context.Context, s string) error {
	m.messages = append(m.messages, s)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	return nil
}

func records(urls ...string) []domain.InputRecord {
	out := make([]domain.InputRecord, 0, len(urls))
	for i, u := range urls {
		out = append(out, domain.InputRecord{DocumentPath: fmt.Sprintf("doc%d.md", i), SourceURL: u, Line: i + 1})
	}
	return out
}

func TestPipelineEveryRecordYieldsOneRow(t *testing.T) {
	t.Parallel()

	src := &sliceSource{records: records(
		"https://cld.pt/dl/download/a/ok.png",
		"https://cld.pt/dl/download/b/404.png",
		"https://cld.pt/short",
		"https://cld.pt/dl/download/c/doc.pdf",
	)}
	uploader := &fakeUploader{fail: map[string]error{
		"https://cld.pt/dl/download/c/doc.pdf": fmt.Errorf("x: %w", domain.ErrUnsupportedFileType),
	}}
	fetcher := fakeFetcher{fail: map[string]error{
		"https://cld.pt/dl/download/b/404.png": &domain.StatusError{Status: "404 Not Found", Code: 404},
	}}
	ledger := &memLedger{}
	notifier := &memNotifier{}
	report := &memReport{}

	p := NewPipeline(PipelineDeps{
		Fetcher:  fetcher,
		Uploader: uploader,
		Ledger:   ledger,
		Notifier: notifier,
		RunID:    "run-7",
	})

	summary, err := p.Run(context.Background(), src, report)
	require.NoError(t, err)
	require.True(t, report.flushed)
	require.Len(t, report.rows, 4)

	ok := report.rows[0]
	assert.Equal(t, "doc0.md", ok.InputPath)
	assert.Equal(t, "root/id/f.png", ok.LocalPath)
	assert.Equal(t, "https://dest/x.png", ok.UpdatedURL)
	assert.Equal(t, "https://dest/del", ok.DeleteLink)
	assert.NotEmpty(t, ok.ReplaceCommand)

	notFound := report.rows[1]
	assert.Empty(t, notFound.LocalPath)
	assert.Equal(t, "https://dest/x.png", notFound.UpdatedURL, "download failure must not block upload")

	short := report.rows[2]
	assert.Empty(t, short.LocalPath)
	assert.Equal(t, "https://dest/x.png", short.UpdatedURL)

	unsupported := report.rows[3]
	assert.Equal(t, "root/id/f.png", unsupported.LocalPath)
	assert.Empty(t, unsupported.UpdatedURL)
	assert.Empty(t, unsupported.DeleteLink)
	assert.Empty(t, unsupported.ReplaceCommand)

	assert.Equal(t, 4, summary.Records)
	assert.Equal(t, 2, summary.Downloaded)
	assert.Equal(t, 1, summary.DownloadFailures)
	assert.Equal(t, 1, summary.DownloadSkipped)
	assert.Equal(t, 3, summary.Uploaded)
	assert.Equal(t, 1, summary.UploadFailures)
	assert.Equal(t, 2, summary.Failures())

	require.Len(t, ledger.entries, 4)
	assert.Equal(t, "run-7", ledger.entries[0].RunID)
	assert.Equal(t, report.rows[3], ledger.entries[3].Row)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "run-7: 4 records")
}

func TestPipelineStagesDisabled(t *testing.T) {
	t.Parallel()

	report := &memReport{}
	p := NewPipeline(PipelineDeps{})

	summary, err := p.Run(context.Background(), &sliceSource{records: records("https://cld.pt/dl/download/a/ok.png")}, report)
	require.NoError(t, err)
	require.Len(t, report.rows, 1)
	assert.Equal(t, domain.ReportRow{InputPath: "doc0.md", OriginalURL: "https://cld.pt/dl/download/a/ok.png"}, report.rows[0])
	assert.Equal(t, 1, summary.Records)
	assert.Zero(t, summary.Failures())
}

func TestPipelineMalformedInputAborts(t *testing.T) {
	t.Parallel()

	malformed := fmt.Errorf("line 2: %w", domain.ErrMalformedInputLine)
	src := &sliceSource{records: records("https://cld.pt/dl/download/a/ok.png"), err: malformed}
	report := &memReport{}
	notifier := &memNotifier{}

	p := NewPipeline(PipelineDeps{Uploader: &fakeUploader{}, Notifier: notifier})
	summary, err := p.Run(context.Background(), src, report)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedInputLine))
	assert.True(t, report.flushed)
	assert.Len(t, report.rows, 1)
	assert.Equal(t, 1, summary.Records)
	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "Aborted")
}

func TestPipelineLedgerFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	report := &memReport{}
	p := NewPipeline(PipelineDeps{Ledger: &memLedger{err: errors.New("disk full")}})

	_, err := p.Run(context.Background(), &sliceSource{records: records("https://a/1", "https://a/2")}, report)
	require.NoError(t, err)
	assert.Len(t, report.rows, 2)
}

func TestPipelineStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	uploader := &fakeUploader{}
	report := &memReport{}
	p := NewPipeline(PipelineDeps{Uploader: uploader})

	_, err := p.Run(ctx, &sliceSource{records: records("https://a/1")}, report)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, uploader.calls)
	assert.True(t, report.flushed)
}

func TestPipelineNotifiesAfterCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	notifier := &memNotifier{}
	p := NewPipeline(PipelineDeps{Notifier: notifier, RunID: "run-9"})

	_, err := p.Run(ctx, &sliceSource{records: records("https://a/1")}, &memReport{})
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "run-9")
	assert.Contains(t, notifier.messages[0], "Aborted: context canceled")
	assert.NoError(t, notifier.ctxErrs[0])
}

func TestReplaceCommand(t *testing.T) {
	t.Parallel()

	cmd := ReplaceCommand("docs/a.md", "https://cld.pt/dl/download/abc/pic.png?download=true", "https://dest/x.png")
	assert.Equal(t,
		`perl -pe 's#\Qhttps://cld.pt/dl/download/abc/pic.png?download=true\E#https://dest/x.png#g' -i 'docs/a.md'`,
		cmd)

	cmd = ReplaceCommand("it's.md", "https://h/a.png", "https://dest/a#b$c@d.png")
	assert.Contains(t, cmd, `-i 'it'\''s.md'`)
	assert.Contains(t, cmd, `#https://dest/a\#b\$c\@d.png#g`)

	cmd = ReplaceCommand("a.md", "https://h/p$x.png", "https://dest/1.png")
	assert.Contains(t, cmd, `s#\Qhttps://h/p\E\$\Qx.png\E#`)

	cmd = ReplaceCommand("a.md", "https://h/u@host.png", "https://dest/1.png")
	assert.Contains(t, cmd, `s#\Qhttps://h/u\E\@\Qhost.png\E#`)

	cmd = ReplaceCommand("a.md", "https://h/o'k.png", "https://dest/it's.png")
	assert.Contains(t, cmd, `\Qhttps://h/o'\''k.png\E#https://dest/it'\''s.png#g`)

	assert.Empty(t, ReplaceCommand("a.md", "https://h/a.png", ""))
}

func TestReplaceCommandRunsUnderPerl(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("perl"); err != nil {
		t.Skip("perl not installed")
	}

	cases := []struct {
		oldURL string
		newURL string
	}{
		{oldURL: "https://cld.pt/dl/download/abc/pic.png?download=true", newURL: "https://i.8upload.com/x.png"},
		{oldURL: "https://h/p$x.png", newURL: "https://dest/$1.png"},
		{oldURL: "https://h/u@host.png", newURL: "https://dest/a@b.png"},
		{oldURL: "https://h/a#frag.png", newURL: "https://dest/c#d.png"},
		{oldURL: `https://h/back\slash.png`, newURL: `https://dest/back\slash.png`},
		{oldURL: "https://h/o'k.png", newURL: "https://dest/it's.png"},
	}

	for _, tc := range cases {
		path := filepath.Join(t.TempDir(), "doc.md")
		content := "before " + tc.oldURL + " middle " + tc.oldURL + " https://h/untouched.png\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		out, err := exec.Command("sh", "-c", ReplaceCommand(path, tc.oldURL, tc.newURL)).CombinedOutput()
		require.NoError(t, err, "output: %s", out)

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "before "+tc.newURL+" middle "+tc.newURL+" https://h/untouched.png\n", string(got), "old url %s", tc.oldURL)
	}
}

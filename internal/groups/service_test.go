package groups

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"quoteflow-backend/internal/oracle"
	"quoteflow-backend/internal/refdata"
	"quoteflow-backend/internal/sourcefiles"
)

type fakeOracle struct {
	results map[string]oracle.Result
	err     error
	calls   int
}

func (f *fakeOracle) AnalyzeDocument(ctx context.Context, in oracle.AnalyzeInput) (oracle.Result, error) {
	f.calls++
	if f.err != nil {
		return oracle.Result{}, f.err
	}
	if result, ok := f.results[in.FileID]; ok {
		return result, nil
	}
	return oracle.Result{DetectedLanguage: "es", DocumentType: "passport", Complexity: "low", PageCount: 1, WordCount: 100, Confidence: 0.9}, nil
}

type fakeStore struct {
	objects map[string][]byte
}

func (f *fakeStore) Save(ctx context.Context, quoteID, fileName string, r io.Reader) (string, int64, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, "", err
	}
	key := quoteID + "/" + fileName
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = data
	return key, int64(len(data)), "text/plain", nil
}

func (f *fakeStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	data, ok := f.objects[storageKey]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeQuoteSettings struct {
	multiplier float64
}

func (f *fakeQuoteSettings) LanguageMultiplier(ctx context.Context, quoteID string) (float64, error) {
	return f.multiplier, nil
}

type countingRecalc struct {
	calls int
}

func (c *countingRecalc) Recalculate(ctx context.Context, quoteID string) error {
	c.calls++
	return nil
}

type recordingLinker struct {
	links map[string]*string
}

func (l *recordingLinker) LinkGroup(ctx context.Context, fileID string, groupID *string) error {
	if l.links == nil {
		l.links = make(map[string]*string)
	}
	l.links[fileID] = groupID
	return nil
}

func newTestService(t *testing.T, client oracle.Client) (*Service, *countingRecalc, *recordingLinker) {
	t.Helper()
	files := &sourcefiles.Service{
		Repo:  sourcefiles.NewMemoryRepo(),
		Store: &fakeStore{},
	}
	recalc := &countingRecalc{}
	linker := &recordingLinker{}
	svc := &Service{
		Repo:    NewMemoryRepo(),
		Files:   files,
		Ref:     refdata.NewProvider(refdata.NewMemoryRepo()),
		Oracle:  client,
		Quotes:  &fakeQuoteSettings{multiplier: 1.0},
		Recalc:  recalc,
		Records: linker,
	}
	return svc, recalc, linker
}

func registerFile(t *testing.T, svc *Service, quoteID, name string) sourcefiles.SourceFile {
	t.Helper()
	file, err := svc.Files.Register(context.Background(), quoteID, name, strings.NewReader("id card scan"))
	if err != nil {
		t.Fatalf("register file: %v", err)
	}
	return file
}

func TestCreateAssignsSequentialGroupNumbers(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeOracle{})

	first, err := svc.Create(context.Background(), "quote-1", CreateInput{Label: "ID card"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.Create(context.Background(), "quote-1", CreateInput{Label: "Diploma"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.GroupNumber != 1 || second.GroupNumber != 2 {
		t.Fatalf("expected numbers 1 and 2, got %d and %d", first.GroupNumber, second.GroupNumber)
	}
	if first.Status != StatusDraft {
		t.Fatalf("new group must be draft, got %s", first.Status)
	}
	if first.BaseRate != 65.00 {
		t.Fatalf("expected snapshotted base rate 65.00, got %.2f", first.BaseRate)
	}
}

func TestAssignItemStealsFromOtherGroup(t *testing.T) {
	svc, recalc, linker := newTestService(t, &fakeOracle{})
	file := registerFile(t, svc, "quote-1", "front.jpg")
	groupA, _ := svc.Create(context.Background(), "quote-1", CreateInput{Label: "A"})
	groupB, _ := svc.Create(context.Background(), "quote-1", CreateInput{Label: "B"})

	if _, err := svc.AssignItem(context.Background(), groupA.ID, file.ID, nil); err != nil {
		t.Fatalf("assign to A: %v", err)
	}
	if _, err := svc.AssignItem(context.Background(), groupB.ID, file.ID, nil); err != nil {
		t.Fatalf("assign to B: %v", err)
	}

	itemsA, _ := svc.Repo.ListItemsByGroup(context.Background(), groupA.ID)
	itemsB, _ := svc.Repo.ListItemsByGroup(context.Background(), groupB.ID)
	if len(itemsA) != 0 {
		t.Fatalf("expected file stolen from A, still has %d items", len(itemsA))
	}
	if len(itemsB) != 1 {
		t.Fatalf("expected B to hold the file, has %d items", len(itemsB))
	}
	if got := linker.links[file.ID]; got == nil || *got != groupB.ID {
		t.Fatalf("expected record linked to B, got %v", got)
	}
	if recalc.calls != 2 {
		t.Fatalf("expected recalculation per assignment, got %d", recalc.calls)
	}

	stored, _ := svc.Repo.GetGroup(context.Background(), groupB.ID)
	if stored.Status != StatusHasItems {
		t.Fatalf("expected has_items, got %s", stored.Status)
	}
}

func TestStealFromAnalyzedGroupReaggregatesDonor(t *testing.T) {
	client := &fakeOracle{results: map[string]oracle.Result{}}
	svc, recalc, _ := newTestService(t, client)
	front := registerFile(t, svc, "quote-1", "front.jpg")
	back := registerFile(t, svc, "quote-1", "back.jpg")
	client.results[front.ID] = oracle.Result{DocumentType: "id_card", Complexity: "low", PageCount: 1, WordCount: 60, Confidence: 0.9}
	client.results[back.ID] = oracle.Result{DocumentType: "id_card", Complexity: "low", PageCount: 1, WordCount: 40, Confidence: 0.9}

	donor, _ := svc.Create(context.Background(), "quote-1", CreateInput{Label: "ID card"})
	if _, err := svc.AssignItem(context.Background(), donor.ID, front.ID, nil); err != nil {
		t.Fatalf("assign front: %v", err)
	}
	if _, err := svc.AssignItem(context.Background(), donor.ID, back.ID, nil); err != nil {
		t.Fatalf("assign back: %v", err)
	}
	if _, err := svc.Analyze(context.Background(), donor.ID); err != nil {
		t.Fatalf("analyze donor: %v", err)
	}
	thief, _ := svc.Create(context.Background(), "quote-1", CreateInput{Label: "Other"})
	recalc.calls = 0

	if _, err := svc.AssignItem(context.Background(), thief.ID, back.ID, nil); err != nil {
		t.Fatalf("steal back: %v", err)
	}

	stored, _ := svc.Repo.GetGroup(context.Background(), donor.ID)
	if stored.TotalPages != 1 || stored.TotalWordCount != 60 {
		t.Fatalf("donor must re-aggregate from its remaining item, got %+v", stored)
	}
	// 1 remaining page x 65.00 = 65.00; the stolen page no longer contributes.
	if stored.LineTotal != 65.00 {
		t.Fatalf("expected donor line total 65.00, got %.2f", stored.LineTotal)
	}
	if stored.Status != StatusAnalyzed {
		t.Fatalf("donor with remaining analyzed items stays analyzed, got %s", stored.Status)
	}
	remaining, _ := svc.Repo.ListItemsByGroup(context.Background(), donor.ID)
	if len(remaining) != 1 || remaining[0].FileID != front.ID {
		t.Fatalf("expected only the front item left on the donor, got %d items", len(remaining))
	}
	if recalc.calls != 1 {
		t.Fatalf("expected one recalculation for the steal, got %d", recalc.calls)
	}
}

func TestStealingOnlyItemEmptiesDonorToDraft(t *testing.T) {
	client := &fakeOracle{results: map[string]oracle.Result{}}
	svc, _, _ := newTestService(t, client)
	file := registerFile(t, svc, "quote-1", "only.jpg")
	client.results[file.ID] = oracle.Result{DocumentType: "passport", Complexity: "low", PageCount: 1, WordCount: 100, Confidence: 0.9}

	donor, _ := svc.Create(context.Background(), "quote-1", CreateInput{})
	if _, err := svc.AssignItem(context.Background(), donor.ID, file.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := svc.Analyze(context.Background(), donor.ID); err != nil {
		t.Fatalf("analyze donor: %v", err)
	}
	thief, _ := svc.Create(context.Background(), "quote-1", CreateInput{})

	if _, err := svc.AssignItem(context.Background(), thief.ID, file.ID, nil); err != nil {
		t.Fatalf("steal: %v", err)
	}

	stored, _ := svc.Repo.GetGroup(context.Background(), donor.ID)
	if stored.Status != StatusDraft {
		t.Fatalf("emptied donor must drop to draft, got %s", stored.Status)
	}
	if stored.TotalPages != 0 || stored.LineTotal != 0 || stored.AnalyzedAt != nil {
		t.Fatalf("emptied donor must zero its totals, got %+v", stored)
	}
}

func TestAssignItemRejectsForeignQuoteFile(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeOracle{})
	file := registerFile(t, svc, "quote-2", "other.jpg")
	group, _ := svc.Create(context.Background(), "quote-1", CreateInput{})

	if _, err := svc.AssignItem(context.Background(), group.ID, file.ID, nil); err == nil {
		t.Fatal("expected error assigning a file from another quote")
	}
}

func TestAnalyzeAggregatesAndPrices(t *testing.T) {
	front := oracle.Result{DetectedLanguage: "es", DocumentType: "id_card", Complexity: "low", PageCount: 1, WordCount: 60, Confidence: 0.95}
	back := oracle.Result{DetectedLanguage: "es", DocumentType: "id_card", Complexity: "low", PageCount: 1, WordCount: 40, Confidence: 0.85}
	client := &fakeOracle{results: map[string]oracle.Result{}}
	svc, recalc, _ := newTestService(t, client)

	fileFront := registerFile(t, svc, "quote-1", "front.jpg")
	fileBack := registerFile(t, svc, "quote-1", "back.jpg")
	client.results[fileFront.ID] = front
	client.results[fileBack.ID] = back

	group, _ := svc.Create(context.Background(), "quote-1", CreateInput{Label: "ID card"})
	if _, err := svc.AssignItem(context.Background(), group.ID, fileFront.ID, nil); err != nil {
		t.Fatalf("assign front: %v", err)
	}
	if _, err := svc.AssignItem(context.Background(), group.ID, fileBack.ID, nil); err != nil {
		t.Fatalf("assign back: %v", err)
	}
	recalc.calls = 0

	analyzed, err := svc.Analyze(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analyzed.TotalPages != 2 || analyzed.TotalWordCount != 100 {
		t.Fatalf("bad aggregation: %+v", analyzed)
	}
	if analyzed.Status != StatusAnalyzed {
		t.Fatalf("expected analyzed, got %s", analyzed.Status)
	}
	if !analyzed.IsAISuggested || analyzed.DocumentType != "id_card" {
		t.Fatalf("expected AI-suggested id_card, got %+v", analyzed)
	}
	if analyzed.AIConfidence != 0.85 {
		t.Fatalf("expected lowest confidence 0.85, got %.2f", analyzed.AIConfidence)
	}
	// 2 pages x 65.00 x 1.0 language x 1.0 low complexity = 130.00, on boundary.
	if analyzed.LineTotal != 130.00 {
		t.Fatalf("expected 130.00, got %.2f", analyzed.LineTotal)
	}
	if recalc.calls != 1 {
		t.Fatalf("expected one recalculation, got %d", recalc.calls)
	}
	if client.calls != 2 {
		t.Fatalf("expected one oracle call per item, got %d", client.calls)
	}
}

// flakyOracle succeeds until the given call number, then fails.
type flakyOracle struct {
	failFrom int
	calls    int
}

func (f *flakyOracle) AnalyzeDocument(ctx context.Context, in oracle.AnalyzeInput) (oracle.Result, error) {
	f.calls++
	if f.calls >= f.failFrom {
		return oracle.Result{}, errors.New("oracle unavailable")
	}
	return oracle.Result{DetectedLanguage: "es", DocumentType: "id_card", Complexity: "low", PageCount: 3, WordCount: 150, Confidence: 0.9}, nil
}

func TestFailedAnalysisLeavesNoPartialItemCounts(t *testing.T) {
	svc, recalc, _ := newTestService(t, &flakyOracle{failFrom: 2})
	first := registerFile(t, svc, "quote-1", "first.jpg")
	second := registerFile(t, svc, "quote-1", "second.jpg")

	group, _ := svc.Create(context.Background(), "quote-1", CreateInput{})
	if _, err := svc.AssignItem(context.Background(), group.ID, first.ID, nil); err != nil {
		t.Fatalf("assign first: %v", err)
	}
	if _, err := svc.AssignItem(context.Background(), group.ID, second.ID, nil); err != nil {
		t.Fatalf("assign second: %v", err)
	}
	recalc.calls = 0

	if _, err := svc.Analyze(context.Background(), group.ID); err == nil {
		t.Fatal("expected analysis to fail on the second item")
	}

	stored, _ := svc.Repo.GetGroup(context.Background(), group.ID)
	if stored.Status != StatusHasItems {
		t.Fatalf("failed analysis must not advance the group, got %s", stored.Status)
	}
	items, _ := svc.Repo.ListItemsByGroup(context.Background(), group.ID)
	for _, item := range items {
		if item.PageCount != 0 || item.WordCount != 0 {
			t.Fatalf("failed analysis must not persist item counts, got %+v", item)
		}
	}
	if recalc.calls != 0 {
		t.Fatalf("failed analysis must not recalculate, got %d", recalc.calls)
	}
}

func TestAnalyzeEmptyGroupFails(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeOracle{})
	group, _ := svc.Create(context.Background(), "quote-1", CreateInput{})
	if _, err := svc.Analyze(context.Background(), group.ID); !errors.Is(err, ErrGroupEmpty) {
		t.Fatalf("expected ErrGroupEmpty, got %v", err)
	}
}

func TestStaffDocumentTypeWinsOverOracle(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeOracle{})
	file := registerFile(t, svc, "quote-1", "scan.pdf")
	group, _ := svc.Create(context.Background(), "quote-1", CreateInput{DocumentType: "marriage_certificate", Complexity: "high"})
	if _, err := svc.AssignItem(context.Background(), group.ID, file.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	analyzed, err := svc.Analyze(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analyzed.DocumentType != "marriage_certificate" || analyzed.Complexity != "high" {
		t.Fatalf("staff choice must win, got %+v", analyzed)
	}
	if analyzed.IsAISuggested {
		t.Fatal("staff-set attributes must not be flagged as AI-suggested")
	}
	// 1 x 65.00 x 1.25 high complexity = 81.25 -> 82.50.
	if analyzed.LineTotal != 82.50 {
		t.Fatalf("expected 82.50, got %.2f", analyzed.LineTotal)
	}
}

func TestRemoveItemReaggregatesAnalyzedGroup(t *testing.T) {
	client := &fakeOracle{results: map[string]oracle.Result{}}
	svc, recalc, linker := newTestService(t, client)
	fileA := registerFile(t, svc, "quote-1", "a.jpg")
	fileB := registerFile(t, svc, "quote-1", "b.jpg")
	client.results[fileA.ID] = oracle.Result{DocumentType: "id_card", Complexity: "low", PageCount: 2, WordCount: 120, Confidence: 0.9}
	client.results[fileB.ID] = oracle.Result{DocumentType: "id_card", Complexity: "low", PageCount: 1, WordCount: 80, Confidence: 0.9}

	group, _ := svc.Create(context.Background(), "quote-1", CreateInput{})
	itemA, _ := svc.AssignItem(context.Background(), group.ID, fileA.ID, nil)
	if _, err := svc.AssignItem(context.Background(), group.ID, fileB.ID, nil); err != nil {
		t.Fatalf("assign b: %v", err)
	}
	if _, err := svc.Analyze(context.Background(), group.ID); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	recalc.calls = 0

	if err := svc.RemoveItem(context.Background(), itemA.ID); err != nil {
		t.Fatalf("remove item: %v", err)
	}
	stored, _ := svc.Repo.GetGroup(context.Background(), group.ID)
	if stored.TotalPages != 1 || stored.TotalWordCount != 80 {
		t.Fatalf("expected re-aggregation from remaining item, got %+v", stored)
	}
	if stored.Status != StatusAnalyzed {
		t.Fatalf("group with remaining analyzed items stays analyzed, got %s", stored.Status)
	}
	// 1 x 65.00 = 65.00.
	if stored.LineTotal != 65.00 {
		t.Fatalf("expected 65.00, got %.2f", stored.LineTotal)
	}
	if got := linker.links[fileA.ID]; got != nil {
		t.Fatalf("expected record unlinked, got %v", *got)
	}
	if recalc.calls != 1 {
		t.Fatalf("expected one recalculation, got %d", recalc.calls)
	}
}

func TestEmptiedGroupSurvivesAsDraft(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeOracle{})
	file := registerFile(t, svc, "quote-1", "only.jpg")
	group, _ := svc.Create(context.Background(), "quote-1", CreateInput{})
	item, _ := svc.AssignItem(context.Background(), group.ID, file.ID, nil)

	if err := svc.RemoveItem(context.Background(), item.ID); err != nil {
		t.Fatalf("remove item: %v", err)
	}
	stored, err := svc.Repo.GetGroup(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("group must survive: %v", err)
	}
	if stored.Status != StatusDraft || stored.LineTotal != 0 {
		t.Fatalf("expected empty draft, got %+v", stored)
	}
}

func TestDeleteGroupKeepsFiles(t *testing.T) {
	svc, _, linker := newTestService(t, &fakeOracle{})
	file := registerFile(t, svc, "quote-1", "keep.jpg")
	group, _ := svc.Create(context.Background(), "quote-1", CreateInput{})
	if _, err := svc.AssignItem(context.Background(), group.ID, file.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if err := svc.Delete(context.Background(), group.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Repo.GetGroup(context.Background(), group.ID); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected group gone, got %v", err)
	}
	if _, err := svc.Files.Get(context.Background(), file.ID); err != nil {
		t.Fatalf("file must survive group deletion: %v", err)
	}
	if got := linker.links[file.ID]; got != nil {
		t.Fatalf("expected record unlinked after delete, got %v", *got)
	}
}

func TestAnalyzeAllContinuesPastFailures(t *testing.T) {
	client := &fakeOracle{results: map[string]oracle.Result{}}
	svc, _, _ := newTestService(t, client)

	goodFile := registerFile(t, svc, "quote-1", "good.jpg")
	badFile := registerFile(t, svc, "quote-1", "bad.jpg")
	client.results[goodFile.ID] = oracle.Result{DocumentType: "passport", Complexity: "low", PageCount: 1, WordCount: 50, Confidence: 0.9}

	good, _ := svc.Create(context.Background(), "quote-1", CreateInput{})
	bad, _ := svc.Create(context.Background(), "quote-1", CreateInput{})
	empty, _ := svc.Create(context.Background(), "quote-1", CreateInput{})
	_ = empty
	if _, err := svc.AssignItem(context.Background(), good.ID, goodFile.ID, nil); err != nil {
		t.Fatalf("assign good: %v", err)
	}
	if _, err := svc.AssignItem(context.Background(), bad.ID, badFile.ID, nil); err != nil {
		t.Fatalf("assign bad: %v", err)
	}
	// Make the bad group's file unreadable by pointing its only item at a
	// missing file.
	items, _ := svc.Repo.ListItemsByGroup(context.Background(), bad.ID)
	items[0].FileID = "missing-file"
	badItem := items[0]
	if err := svc.Repo.RemoveItem(context.Background(), badItem.ID); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if err := svc.Repo.CreateItem(context.Background(), badItem); err != nil {
		t.Fatalf("reattach: %v", err)
	}

	result, err := svc.AnalyzeAll(context.Background(), "quote-1")
	if err != nil {
		t.Fatalf("analyze all: %v", err)
	}
	if result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("expected 1/1, got %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].TargetID != bad.ID {
		t.Fatalf("expected error entry for bad group, got %+v", result.Errors)
	}
}

func TestSetCertificationShiftsLineTotalAdditively(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeOracle{})
	file := registerFile(t, svc, "quote-1", "doc.pdf")
	group, _ := svc.Create(context.Background(), "quote-1", CreateInput{})
	if _, err := svc.AssignItem(context.Background(), group.ID, file.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}
	analyzed, err := svc.Analyze(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	base := analyzed.LineTotal

	certID := "cert-notarized"
	updated, err := svc.SetCertification(context.Background(), group.ID, &certID)
	if err != nil {
		t.Fatalf("set certification: %v", err)
	}
	if updated.LineTotal != base+55.00 {
		t.Fatalf("expected %.2f, got %.2f", base+55.00, updated.LineTotal)
	}

	cleared, err := svc.SetCertification(context.Background(), group.ID, nil)
	if err != nil {
		t.Fatalf("clear certification: %v", err)
	}
	if cleared.LineTotal != base {
		t.Fatalf("expected %.2f after clearing, got %.2f", base, cleared.LineTotal)
	}
}

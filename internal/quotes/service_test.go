package quotes

import (
	"context"
	"errors"
	"testing"
	"time"

	"quoteflow-backend/internal/analyses"
	"quoteflow-backend/internal/groups"
	"quoteflow-backend/internal/refdata"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return &Service{
		Repo:    NewMemoryRepo(),
		Ref:     refdata.NewProvider(refdata.NewMemoryRepo()),
		Records: analyses.NewMemoryRepo(),
		Groups:  groups.NewMemoryRepo(),
	}
}

func createQuote(t *testing.T, svc *Service) Detail {
	t.Helper()
	detail, err := svc.Create(context.Background(), CreateInput{
		CustomerName:     "Maria Lopez",
		CustomerEmail:    "maria@example.com",
		SourceLanguageID: "lang-es",
		TargetLanguageID: "lang-en",
	})
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	return detail
}

func seedRecord(t *testing.T, svc *Service, quoteID string, lineTotal float64, fileID *string) analyses.AnalysisRecord {
	t.Helper()
	now := time.Now().UTC()
	record := analyses.AnalysisRecord{
		ID:            "rec-" + quoteID + "-" + time.Now().Format("150405.000000000"),
		QuoteID:       quoteID,
		SourceFileID:  fileID,
		BillablePages: 2,
		BaseRate:      65.00,
		LineTotal:     lineTotal,
		Status:        analyses.StatusCompleted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if fileID == nil {
		record.IsManualEntry = true
		record.IsStaffCreated = true
	}
	if err := svc.Records.Create(context.Background(), record); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	return record
}

func TestCreateResolvesLanguageTier(t *testing.T) {
	svc := newTestService(t)
	detail := createQuote(t, svc)

	if detail.Quote.Status != StatusDraft {
		t.Fatalf("expected draft, got %s", detail.Quote.Status)
	}
	if detail.Quote.QuoteNumber != 1 {
		t.Fatalf("expected quote number 1, got %d", detail.Quote.QuoteNumber)
	}
	if detail.Settings.LanguageTier != 1 || detail.Settings.LanguageMultiplier != 1.00 {
		t.Fatalf("expected tier 1 multiplier 1.00, got %+v", detail.Settings)
	}
	if detail.Pricing.Version != 1 {
		t.Fatalf("expected initial version 1, got %d", detail.Pricing.Version)
	}
}

func TestCreateUnknownLanguageFails(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Create(context.Background(), CreateInput{SourceLanguageID: "lang-unknown"})
	if !errors.Is(err, refdata.ErrReferenceNotFound) {
		t.Fatalf("expected ErrReferenceNotFound, got %v", err)
	}
}

func TestRecalculateFullAdjustmentChain(t *testing.T) {
	svc := newTestService(t)
	detail := createQuote(t, svc)
	quoteID := detail.Quote.ID

	seedRecord(t, svc, quoteID, 180.00, nil)
	seedRecord(t, svc, quoteID, 120.00, nil)

	taxRate := 0.05
	deliveryID := "delivery-post"
	price, err := svc.UpdateAdjustments(context.Background(), quoteID, AdjustmentsInput{
		IsRush:           true,
		DeliveryOptionID: &deliveryID,
		HasDiscount:      true,
		DiscountType:     "percentage",
		DiscountValue:    10,
		TaxRate:          &taxRate,
	})
	if err != nil {
		t.Fatalf("update adjustments: %v", err)
	}

	if price.DocumentSubtotal != 300.00 {
		t.Fatalf("expected subtotal 300.00, got %.2f", price.DocumentSubtotal)
	}
	if price.RushFee != 90.00 {
		t.Fatalf("expected rush fee 90.00, got %.2f", price.RushFee)
	}
	if price.DeliveryFee != 25.00 {
		t.Fatalf("expected delivery fee 25.00, got %.2f", price.DeliveryFee)
	}
	if price.DiscountAmount != 30.00 {
		t.Fatalf("expected discount 30.00, got %.2f", price.DiscountAmount)
	}
	if price.PreTaxTotal != 385.00 {
		t.Fatalf("expected pre-tax 385.00, got %.2f", price.PreTaxTotal)
	}
	if price.TaxAmount != 19.25 {
		t.Fatalf("expected tax 19.25, got %.2f", price.TaxAmount)
	}
	if price.Total != 404.25 {
		t.Fatalf("expected total 404.25, got %.2f", price.Total)
	}
}

func TestRecalculateIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	detail := createQuote(t, svc)
	quoteID := detail.Quote.ID
	seedRecord(t, svc, quoteID, 150.00, nil)

	if err := svc.Recalculate(context.Background(), quoteID); err != nil {
		t.Fatalf("first recalculate: %v", err)
	}
	first, _ := svc.Repo.GetPricing(context.Background(), quoteID)

	if err := svc.Recalculate(context.Background(), quoteID); err != nil {
		t.Fatalf("second recalculate: %v", err)
	}
	second, _ := svc.Repo.GetPricing(context.Background(), quoteID)

	if first != second {
		t.Fatalf("recalculation not idempotent:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestGroupSupersedesFileRecord(t *testing.T) {
	svc := newTestService(t)
	detail := createQuote(t, svc)
	quoteID := detail.Quote.ID

	fileID := "file-1"
	seedRecord(t, svc, quoteID, 100.00, &fileID)

	now := time.Now().UTC()
	group := groups.DocumentGroup{
		ID:        "group-1",
		QuoteID:   quoteID,
		Status:    groups.StatusAnalyzed,
		LineTotal: 130.00,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := svc.Groups.CreateGroup(context.Background(), group); err != nil {
		t.Fatalf("seed group: %v", err)
	}
	if err := svc.Groups.CreateItem(context.Background(), groups.AssignedItem{
		ID:            "item-1",
		GroupID:       group.ID,
		QuoteID:       quoteID,
		FileID:        fileID,
		SequenceOrder: 1,
		CreatedAt:     now,
	}); err != nil {
		t.Fatalf("seed item: %v", err)
	}

	if err := svc.Recalculate(context.Background(), quoteID); err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	price, _ := svc.Repo.GetPricing(context.Background(), quoteID)
	if price.DocumentSubtotal != 130.00 {
		t.Fatalf("grouped file must not double-count: expected 130.00, got %.2f", price.DocumentSubtotal)
	}
}

func TestDraftGroupDoesNotContribute(t *testing.T) {
	svc := newTestService(t)
	detail := createQuote(t, svc)
	quoteID := detail.Quote.ID
	seedRecord(t, svc, quoteID, 80.00, nil)

	now := time.Now().UTC()
	if err := svc.Groups.CreateGroup(context.Background(), groups.DocumentGroup{
		ID:        "group-draft",
		QuoteID:   quoteID,
		Status:    groups.StatusDraft,
		LineTotal: 999.00,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed group: %v", err)
	}

	if err := svc.Recalculate(context.Background(), quoteID); err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	price, _ := svc.Repo.GetPricing(context.Background(), quoteID)
	if price.DocumentSubtotal != 80.00 {
		t.Fatalf("draft group must not contribute, got %.2f", price.DocumentSubtotal)
	}
}

func TestApplyCertificationToAllShiftsByDelta(t *testing.T) {
	svc := newTestService(t)
	detail := createQuote(t, svc)
	quoteID := detail.Quote.ID

	plain := seedRecord(t, svc, quoteID, 130.00, nil)
	certified := seedRecord(t, svc, quoteID, 160.00, nil)
	standardPrice := 30.00
	standardID := "cert-standard"
	certified.CertificationTypeID = &standardID
	certified.CertificationPrice = &standardPrice
	if err := svc.Records.Update(context.Background(), certified); err != nil {
		t.Fatalf("seed certification: %v", err)
	}

	notarizedID := "cert-notarized"
	if err := svc.ApplyCertificationToAll(context.Background(), quoteID, &notarizedID); err != nil {
		t.Fatalf("apply certification: %v", err)
	}

	updatedPlain, _ := svc.Records.GetByID(context.Background(), plain.ID)
	if updatedPlain.LineTotal != 185.00 {
		t.Fatalf("expected 130 + 55 = 185.00, got %.2f", updatedPlain.LineTotal)
	}
	updatedCertified, _ := svc.Records.GetByID(context.Background(), certified.ID)
	if updatedCertified.LineTotal != 185.00 {
		t.Fatalf("expected 160 - 30 + 55 = 185.00, got %.2f", updatedCertified.LineTotal)
	}

	price, _ := svc.Repo.GetPricing(context.Background(), quoteID)
	if price.DocumentSubtotal != 370.00 {
		t.Fatalf("expected subtotal 370.00 after batch apply, got %.2f", price.DocumentSubtotal)
	}
}

// failingCertRepo fails UpdateCertification for one record ID.
type failingCertRepo struct {
	analyses.Repo
	failID string
}

func (r *failingCertRepo) UpdateCertification(ctx context.Context, recordID string, certificationTypeID *string, certificationPrice *float64, lineTotal float64) error {
	if recordID == r.failID {
		return errors.New("row locked")
	}
	return r.Repo.UpdateCertification(ctx, recordID, certificationTypeID, certificationPrice, lineTotal)
}

func TestApplyCertificationReportsPartialFailure(t *testing.T) {
	svc := newTestService(t)
	detail := createQuote(t, svc)
	quoteID := detail.Quote.ID

	good := seedRecord(t, svc, quoteID, 100.00, nil)
	bad := seedRecord(t, svc, quoteID, 200.00, nil)
	svc.Records = &failingCertRepo{Repo: svc.Records, failID: bad.ID}

	certID := "cert-standard"
	err := svc.ApplyCertificationToAll(context.Background(), quoteID, &certID)
	var batchErr *BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("expected BatchError, got %v", err)
	}
	if batchErr.Succeeded != 1 || len(batchErr.Failed) != 1 {
		t.Fatalf("expected 1/1 split, got %+v", batchErr)
	}
	if batchErr.Failed[0].TargetID != bad.ID {
		t.Fatalf("failure must name the record, got %+v", batchErr.Failed[0])
	}

	updatedGood, _ := svc.Records.GetByID(context.Background(), good.ID)
	if updatedGood.LineTotal != 130.00 {
		t.Fatalf("succeeded record must stay applied, got %.2f", updatedGood.LineTotal)
	}
	price, _ := svc.Repo.GetPricing(context.Background(), quoteID)
	if price.DocumentSubtotal != 330.00 {
		t.Fatalf("totals must reflect the mixed outcome, got %.2f", price.DocumentSubtotal)
	}
}

func TestOverrideRepricesLines(t *testing.T) {
	svc := newTestService(t)
	detail := createQuote(t, svc)
	quoteID := detail.Quote.ID
	seedRecord(t, svc, quoteID, 130.00, nil)

	override := 1.25
	settings, err := svc.UpdateSettings(context.Background(), quoteID, SettingsPatch{
		LanguageMultiplierOverride: &override,
	})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if settings.EffectiveMultiplier() != 1.25 {
		t.Fatalf("expected effective 1.25, got %.2f", settings.EffectiveMultiplier())
	}

	price, _ := svc.Repo.GetPricing(context.Background(), quoteID)
	// 2 pages x 65.00 x 1.25 = 162.50, already on the 2.50 boundary.
	if price.DocumentSubtotal != 162.50 {
		t.Fatalf("expected repriced subtotal 162.50, got %.2f", price.DocumentSubtotal)
	}
}

func TestLanguageChangePreservesOverride(t *testing.T) {
	svc := newTestService(t)
	detail := createQuote(t, svc)
	quoteID := detail.Quote.ID

	override := 2.0
	if _, err := svc.UpdateSettings(context.Background(), quoteID, SettingsPatch{
		LanguageMultiplierOverride: &override,
	}); err != nil {
		t.Fatalf("set override: %v", err)
	}

	arabic := "lang-ar"
	settings, err := svc.UpdateSettings(context.Background(), quoteID, SettingsPatch{
		SourceLanguageID: &arabic,
	})
	if err != nil {
		t.Fatalf("change language: %v", err)
	}
	if settings.LanguageTier != 2 || settings.LanguageMultiplier != 1.25 {
		t.Fatalf("expected tier 2 default 1.25, got %+v", settings)
	}
	if settings.LanguageMultiplierOverride == nil || *settings.LanguageMultiplierOverride != 2.0 {
		t.Fatalf("override must survive a language change, got %+v", settings.LanguageMultiplierOverride)
	}
	if settings.EffectiveMultiplier() != 2.0 {
		t.Fatalf("override must win, got %.2f", settings.EffectiveMultiplier())
	}

	reset, err := svc.UpdateSettings(context.Background(), quoteID, SettingsPatch{ResetOverride: true})
	if err != nil {
		t.Fatalf("reset override: %v", err)
	}
	if reset.LanguageMultiplierOverride != nil {
		t.Fatal("override must clear on reset")
	}
	if reset.EffectiveMultiplier() != 1.25 {
		t.Fatalf("tier default must apply after reset, got %.2f", reset.EffectiveMultiplier())
	}
}

// racingRepo reports a version conflict on the first pricing write.
type racingRepo struct {
	Repo
	conflicts int
}

func (r *racingRepo) UpdatePricing(ctx context.Context, pricing Pricing, expectedVersion int64) error {
	if r.conflicts > 0 {
		r.conflicts--
		return ErrConcurrentModification
	}
	return r.Repo.UpdatePricing(ctx, pricing, expectedVersion)
}

func TestRecalculateRetriesOnVersionConflict(t *testing.T) {
	svc := newTestService(t)
	detail := createQuote(t, svc)
	quoteID := detail.Quote.ID
	seedRecord(t, svc, quoteID, 100.00, nil)

	svc.Repo = &racingRepo{Repo: svc.Repo, conflicts: 1}
	if err := svc.Recalculate(context.Background(), quoteID); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	price, _ := svc.Repo.GetPricing(context.Background(), quoteID)
	if price.DocumentSubtotal != 100.00 {
		t.Fatalf("expected subtotal 100.00, got %.2f", price.DocumentSubtotal)
	}

	svc.Repo = &racingRepo{Repo: svc.Repo, conflicts: 5}
	seedRecord(t, svc, quoteID, 50.00, nil)
	if err := svc.Recalculate(context.Background(), quoteID); !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("expected conflict to surface after retries, got %v", err)
	}
}

func TestSubmitMarksQuote(t *testing.T) {
	svc := newTestService(t)
	detail := createQuote(t, svc)

	quote, err := svc.Submit(context.Background(), detail.Quote.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if quote.Status != StatusSubmitted {
		t.Fatalf("expected submitted, got %s", quote.Status)
	}
}

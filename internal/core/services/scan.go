package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
	"github.com/custodia-labs/docsync-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docsync-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docsync-cli/internal/logger"
)

// Ensure ScanCoordinator implements the interface.
var _ driving.ScanOrchestrator = (*ScanCoordinator)(nil)

// ScanOptions bound a scan's paging, concurrency and retry behaviour.
type ScanOptions struct {
	// PageSize caps documents fetched per page.
	PageSize int

	// Workers bounds concurrent document upserts within a page.
	Workers int

	// PageRetries is how many times a transient page fetch is retried.
	PageRetries int

	// RetryBackoff is the initial backoff between page retries; it doubles
	// per attempt.
	RetryBackoff time.Duration

	// PageTimeout bounds one page's fetch and processing. Zero disables it.
	PageTimeout time.Duration
}

// DefaultScanOptions returns sensible defaults for interactive use.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		PageSize:     200,
		Workers:      4,
		PageRetries:  3,
		RetryBackoff: 2 * time.Second,
	}
}

func (o ScanOptions) withDefaults() ScanOptions {
	def := DefaultScanOptions()
	if o.PageSize <= 0 {
		o.PageSize = def.PageSize
	}
	if o.Workers <= 0 {
		o.Workers = def.Workers
	}
	if o.PageRetries < 0 {
		o.PageRetries = def.PageRetries
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = def.RetryBackoff
	}
	return o
}

// ScanCoordinator drives incremental plan scans: it resolves each plan's
// configured views, streams documents per resolved view in modification-time
// order, and upserts item values and attachments through the dedup store.
//
// Per plan the coordinator moves Idle -> Resolving -> Scanning(view...) ->
// Committed, with Failed reachable from anywhere. Views within a plan scan
// strictly sequentially in resolved order, because later views may reference
// identities created by earlier ones. A view's watermark is persisted only
// after the view fully drains; crash replay is therefore bounded to one
// view's worth of documents, which the dedup contracts make idempotent.
type ScanCoordinator struct {
	planStore driven.PlanStore
	scanStore driven.ScanStateStore
	runStore  driven.RunStore
	dedup     driven.DedupStore
	payloads  driven.PayloadStore
	catalog   *ItemCatalog
	resolver  *ViewResolver
	factory   driven.ConnectorFactory
	opts      ScanOptions

	// Status tracking
	mu          sync.RWMutex
	activeScans map[string]*driving.ScanStatus
}

// NewScanCoordinator creates a scan coordinator.
func NewScanCoordinator(
	planStore driven.PlanStore,
	scanStore driven.ScanStateStore,
	runStore driven.RunStore,
	dedup driven.DedupStore,
	payloads driven.PayloadStore,
	catalog *ItemCatalog,
	resolver *ViewResolver,
	factory driven.ConnectorFactory,
	opts ScanOptions,
) *ScanCoordinator {
	return &ScanCoordinator{
		planStore:   planStore,
		scanStore:   scanStore,
		runStore:    runStore,
		dedup:       dedup,
		payloads:    payloads,
		catalog:     catalog,
		resolver:    resolver,
		factory:     factory,
		opts:        opts.withDefaults(),
		activeScans: make(map[string]*driving.ScanStatus),
	}
}

// ScanPlan resolves and scans one plan.
func (c *ScanCoordinator) ScanPlan(ctx context.Context, planID string) (*domain.ScanResult, error) {
	plan, err := c.planStore.GetPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	if !plan.Enabled {
		return nil, domain.ErrPlanDisabled
	}

	status, err := c.claim(planID)
	if err != nil {
		return nil, err
	}
	defer c.release(planID)

	result := &domain.ScanResult{PlanID: planID, StartedAt: time.Now().UTC()}
	run := &domain.ScanRun{ID: uuid.NewString(), PlanID: planID, StartedAt: result.StartedAt}
	if err := c.runStore.StartRun(ctx, run); err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	err = c.scanPlan(ctx, *plan, status, result, run)

	result.EndedAt = time.Now().UTC()
	run.EndedAt = result.EndedAt
	if err != nil {
		c.setPhase(status, domain.PhaseFailed)
		run.Notes = err.Error()
	}
	if finishErr := c.runStore.FinishRun(ctx, run); finishErr != nil {
		logger.Warn("Failed to record run for plan %s: %v", planID, finishErr)
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

func (c *ScanCoordinator) scanPlan(
	ctx context.Context,
	plan domain.Plan,
	status *driving.ScanStatus,
	result *domain.ScanResult,
	run *domain.ScanRun,
) error {
	connector, err := c.factory.Create(ctx, plan)
	if err != nil {
		return fmt.Errorf("create connector: %w", err)
	}
	defer connector.Close()

	if err := connector.Validate(ctx, plan); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
	}

	c.setPhase(status, domain.PhaseResolving)
	views, err := c.planStore.ListViews(ctx, plan.ID)
	if err != nil {
		return fmt.Errorf("list views: %w", err)
	}
	available, err := connector.ListViews(ctx, plan)
	if err != nil {
		return fmt.Errorf("list source views: %w", err)
	}

	resolution, err := c.resolver.Resolve(plan, views, available)
	if err != nil {
		return err
	}
	for _, view := range resolution.Unresolved {
		result.Unresolved = append(result.Unresolved, view.CanonName)
	}

	logger.Info("Scanning plan %s: %d view(s) resolved, %d unresolved",
		plan.DisplayName(), len(resolution.Resolved), len(resolution.Unresolved))

	c.setPhase(status, domain.PhaseScanning)
	for _, resolved := range resolution.Resolved {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.setView(status, resolved.ViewName)

		viewResult := c.scanView(ctx, plan, connector, resolved, status)
		result.Views = append(result.Views, viewResult)

		run.DocsScanned += viewResult.Documents
		run.ValuesUpserted += viewResult.ValuesUpserted
		run.AttachmentsSaved += viewResult.AttachmentsNew
		run.Errors += viewResult.Errors
		if viewResult.Err != nil {
			// Other views still commit with their own watermarks.
			logger.Warn("View %q failed for plan %s: %v", resolved.ViewName, plan.DisplayName(), viewResult.Err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}

	c.setPhase(status, domain.PhaseCommitted)
	return nil
}

// scanView drains one resolved view. The watermark advances only after the
// whole view drains; any failure leaves it untouched.
func (c *ScanCoordinator) scanView(
	ctx context.Context,
	plan domain.Plan,
	connector driven.Connector,
	resolved domain.ResolvedView,
	status *driving.ScanStatus,
) domain.ViewScanResult {
	result := domain.ViewScanResult{
		CanonName: resolved.View.CanonName,
		ViewName:  resolved.ViewName,
	}

	var since time.Time
	state, err := c.scanStore.Get(ctx, plan.ID, resolved.View.CanonName)
	switch {
	case err == nil:
		since = state.Watermark
	case errors.Is(err, domain.ErrNotFound):
		// First scan of this view.
	default:
		result.Err = fmt.Errorf("get scan state: %w", err)
		return result
	}

	watermark := since
	pageToken := ""
	for {
		// Cancellation lands between pages; in-flight page work finishes
		// so the watermark commit stays all-or-nothing.
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}

		pageMax, next, err := c.scanPage(ctx, plan, connector, resolved.ViewName, since, pageToken, watermark, &result, status)
		if err != nil {
			result.Err = err
			return result
		}
		if pageMax.After(watermark) {
			watermark = pageMax
		}
		if next == "" {
			break
		}
		pageToken = next
	}

	now := time.Now().UTC()
	if err := c.scanStore.Save(ctx, domain.ScanState{
		PlanID:    plan.ID,
		CanonName: resolved.View.CanonName,
		ViewName:  resolved.ViewName,
		Watermark: watermark,
		LastScan:  now,
	}); err != nil {
		result.Err = fmt.Errorf("save scan state: %w", err)
		return result
	}

	result.Watermark = watermark
	logger.Debug("View %q drained: %d document(s), watermark %s",
		resolved.ViewName, result.Documents, watermark.Format(time.RFC3339))
	return result
}

// scanPage fetches and processes one page. Returns the page's highest
// ModifiedAt and the next page token.
func (c *ScanCoordinator) scanPage(
	ctx context.Context,
	plan domain.Plan,
	connector driven.Connector,
	view string,
	since time.Time,
	pageToken string,
	floor time.Time,
	result *domain.ViewScanResult,
	status *driving.ScanStatus,
) (time.Time, string, error) {
	pageCtx := ctx
	if c.opts.PageTimeout > 0 {
		var cancel context.CancelFunc
		pageCtx, cancel = context.WithTimeout(ctx, c.opts.PageTimeout)
		defer cancel()
	}

	page, err := c.fetchPage(pageCtx, plan, connector, view, since, pageToken)
	if err != nil {
		return time.Time{}, "", err
	}
	if len(page.Documents) == 0 {
		return time.Time{}, page.NextPageToken, nil
	}

	// Pages must arrive in non-decreasing modification order, both within
	// the page and against everything already committed for this view.
	prev := floor
	for _, doc := range page.Documents {
		if doc.ModifiedAt.Before(prev) {
			return time.Time{}, "", fmt.Errorf("%w: document %s modified %s before %s",
				domain.ErrPageOrder, doc.UNID, doc.ModifiedAt.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		prev = doc.ModifiedAt
	}

	stats := c.processPage(pageCtx, plan, connector, page.Documents, status)
	result.Documents += stats.documents
	result.ValuesUpserted += stats.valuesUpserted
	result.ValuesNew += stats.valuesNew
	result.AttachmentsStored += stats.attachmentsStored
	result.AttachmentsNew += stats.attachmentsNew
	result.Errors += stats.errors

	if err := pageCtx.Err(); err != nil {
		// The page did not complete; it is safe to retry next run.
		return time.Time{}, "", err
	}
	return prev, page.NextPageToken, nil
}

// fetchPage retries transient connector failures with doubling backoff.
func (c *ScanCoordinator) fetchPage(
	ctx context.Context,
	plan domain.Plan,
	connector driven.Connector,
	view string,
	since time.Time,
	pageToken string,
) (*domain.DocumentPage, error) {
	backoff := c.opts.RetryBackoff
	var lastErr error

	for attempt := 0; attempt <= c.opts.PageRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("Retrying page fetch for view %q (attempt %d/%d)", view, attempt, c.opts.PageRetries)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		page, err := connector.FetchDocuments(ctx, plan, view, since, pageToken, c.opts.PageSize)
		if err == nil {
			return page, nil
		}
		if !errors.Is(err, domain.ErrConnector) {
			return nil, fmt.Errorf("fetch documents: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetch documents after %d attempts: %w", c.opts.PageRetries+1, lastErr)
}

// pageStats accumulates per-page counters across workers.
type pageStats struct {
	mu                sync.Mutex
	documents         int
	valuesUpserted    int
	valuesNew         int
	attachmentsStored int
	attachmentsNew    int
	errors            int
}

// processPage dispatches a page's documents to a bounded worker pool.
// Documents within a page are independent, and the dedup store's upserts
// are safe under concurrent callers for non-overlapping documents.
func (c *ScanCoordinator) processPage(
	ctx context.Context,
	plan domain.Plan,
	connector driven.Connector,
	docs []domain.RawDocument,
	status *driving.ScanStatus,
) *pageStats {
	stats := &pageStats{}
	jobs := make(chan domain.RawDocument)

	var wg sync.WaitGroup
	workers := c.opts.Workers
	if workers > len(docs) {
		workers = len(docs)
	}
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				c.processDocument(ctx, plan, connector, doc, stats, status)
			}
		}()
	}

	for _, doc := range docs {
		jobs <- doc
	}
	close(jobs)
	wg.Wait()
	return stats
}

// processDocument upserts one document, its attachments and its item values.
// Failures are tolerated per document: the page carries on.
func (c *ScanCoordinator) processDocument(
	ctx context.Context,
	plan domain.Plan,
	connector driven.Connector,
	raw domain.RawDocument,
	stats *pageStats,
	status *driving.ScanStatus,
) {
	doc := &domain.Document{
		ID:         uuid.NewString(),
		SourceID:   plan.ID,
		UNID:       raw.UNID,
		Form:       raw.Form,
		Subject:    raw.Subject,
		ModifiedAt: raw.ModifiedAt,
		CreatedAt:  raw.CreatedAt,
	}
	if err := c.dedup.SaveDocument(ctx, doc); err != nil {
		logger.Debug("Failed to save document %s: %v", raw.UNID, err)
		stats.mu.Lock()
		stats.errors++
		stats.mu.Unlock()
		c.noteProgress(status, 0, 1)
		return
	}

	docErrs := 0
	attachmentIDs := make(map[string]string, len(raw.Attachments))

	for _, ref := range raw.Attachments {
		id, wasNew, err := c.storeAttachment(ctx, plan, connector, raw.UNID, ref)
		if err != nil {
			var integrity *domain.IntegrityError
			if errors.As(err, &integrity) {
				// Contradictory source data: abort this document's scan.
				logger.Warn("%v", integrity)
				stats.mu.Lock()
				stats.errors++
				stats.mu.Unlock()
				c.noteProgress(status, 0, 1)
				return
			}
			logger.Debug("Failed to store attachment %s on %s: %v", ref.Filename, raw.UNID, err)
			docErrs++
			continue
		}
		attachmentIDs[ref.Filename] = id
		stats.mu.Lock()
		stats.attachmentsStored++
		if wasNew {
			stats.attachmentsNew++
		}
		stats.mu.Unlock()
	}

	for _, rawItem := range raw.Items {
		item, known, err := c.catalog.Lookup(ctx, rawItem.Name)
		if err != nil {
			logger.Debug("Catalogue lookup %q failed: %v", rawItem.Name, err)
			docErrs++
			continue
		}
		if !known {
			// Uncatalogued item names are skipped, not fatal.
			continue
		}
		for ord, value := range rawItem.Values {
			_, wasNew, err := c.dedup.UpsertItemValue(ctx, raw.UNID, item.ID, ord, value, rawItem.Summary)
			if err != nil {
				logger.Debug("Failed to upsert value of %q on %s: %v", rawItem.Name, raw.UNID, err)
				docErrs++
				continue
			}
			stats.mu.Lock()
			stats.valuesUpserted++
			if wasNew {
				stats.valuesNew++
			}
			stats.mu.Unlock()
		}
	}

	// Attachments also surface as values on their carrying item, so a
	// document's fields and files read back through one query path.
	for _, ref := range raw.Attachments {
		attID, ok := attachmentIDs[ref.Filename]
		if !ok {
			continue
		}
		item, known, err := c.catalog.Lookup(ctx, ref.ItemName)
		if err != nil || !known {
			continue
		}
		if _, _, err := c.dedup.UpsertItemValue(ctx, raw.UNID, item.ID, 0, domain.AttachmentValue(attID), false); err != nil {
			logger.Debug("Failed to link attachment value %s on %s: %v", ref.Filename, raw.UNID, err)
			docErrs++
		}
	}

	stats.mu.Lock()
	stats.documents++
	stats.errors += docErrs
	stats.mu.Unlock()
	c.noteProgress(status, 1, docErrs)
}

// storeAttachment fetches an attachment's payload, writes it to the content
// store and upserts its row.
func (c *ScanCoordinator) storeAttachment(
	ctx context.Context,
	plan domain.Plan,
	connector driven.Connector,
	unid string,
	ref domain.RawAttachment,
) (string, bool, error) {
	data, digest, err := connector.FetchAttachment(ctx, plan, unid, ref.Filename)
	if err != nil {
		return "", false, fmt.Errorf("fetch attachment: %w", err)
	}

	path, err := c.payloads.Write(ctx, digest, data)
	if err != nil {
		return "", false, fmt.Errorf("write payload: %w", err)
	}

	kind := ref.Kind
	if kind == "" {
		kind = domain.AttachmentKindFile
	}
	return c.dedup.UpsertAttachment(ctx, domain.Attachment{
		ID:          uuid.NewString(),
		UNID:        unid,
		SHA256:      digest,
		Filename:    ref.Filename,
		ItemName:    ref.ItemName,
		Kind:        kind,
		MIMEType:    ref.MIMEType,
		SizeBytes:   int64(len(data)),
		StoragePath: path,
	})
}

// ScanAll scans every enabled plan, one scan task per plan.
func (c *ScanCoordinator) ScanAll(ctx context.Context) ([]domain.ScanResult, error) {
	plans, err := c.planStore.ListPlans(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []domain.ScanResult
		errs    []error
	)
	for _, plan := range plans {
		if !plan.Enabled {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := c.ScanPlan(ctx, plan.ID)
			mu.Lock()
			defer mu.Unlock()
			if result != nil {
				results = append(results, *result)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("scan %s: %w", plan.DisplayName(), err))
			}
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		return results, errors.Join(errs...)
	}
	return results, nil
}

// Status returns the live status of a plan's scan.
func (c *ScanCoordinator) Status(_ context.Context, planID string) (*driving.ScanStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if status, ok := c.activeScans[planID]; ok {
		copied := *status
		return &copied, nil
	}
	return &driving.ScanStatus{PlanID: planID, Phase: domain.PhaseIdle}, nil
}

// claim registers a plan as scanning, rejecting overlap.
func (c *ScanCoordinator) claim(planID string) (*driving.ScanStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, running := c.activeScans[planID]; running {
		return nil, domain.ErrScanInProgress
	}
	status := &driving.ScanStatus{PlanID: planID, Phase: domain.PhaseIdle}
	c.activeScans[planID] = status
	return status, nil
}

func (c *ScanCoordinator) release(planID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.activeScans, planID)
}

func (c *ScanCoordinator) setPhase(status *driving.ScanStatus, phase domain.ScanPhase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status.Phase = phase
}

func (c *ScanCoordinator) setView(status *driving.ScanStatus, view string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status.View = view
}

func (c *ScanCoordinator) noteProgress(status *driving.ScanStatus, docs, errCount int) {
	c.mu.Lock()
	status.Documents += docs
	status.Errors += errCount
	c.mu.Unlock()
}

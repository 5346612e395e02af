package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"rosterforge/internal/audiopatch"
	"rosterforge/internal/boneinject"
	"rosterforge/internal/bundle"
	"rosterforge/internal/faults"
	"rosterforge/internal/iconmerge"
	"rosterforge/internal/layout"
	"rosterforge/internal/logging"
	"rosterforge/internal/mapping"
	"rosterforge/internal/preflight"
	"rosterforge/internal/queue"
	"rosterforge/internal/report"
	"rosterforge/internal/staging"
)

// bundleOutcome carries one finished bundle's report slice plus the icons
// it contributes to the shared archive merge.
type bundleOutcome struct {
	report report.Bundle
	icons  []iconmerge.Icon
}

// CompleteAndStage runs the full completion pipeline for the roster and
// returns the staged tree plus the aggregate report. The destination is
// never touched; call Commit to apply the tree.
func (m *Manager) CompleteAndStage(ctx context.Context, l *layout.Layout) (*staging.Tree, *report.Aggregate, error) {
	if err := m.runPreflight(); err != nil {
		return nil, nil, err
	}

	if _, err := m.store.ResetStuckProcessing(ctx); err != nil {
		return nil, nil, fmt.Errorf("reset stuck bundles: %w", err)
	}
	if err := m.heartbeat.ReclaimStaleItems(ctx); err != nil {
		m.logger.Warn("reclaim stale bundles failed", logging.Error(err))
	}

	bundles, err := bundle.Discover(m.cfg.Paths.CharactersDir, l.Characters())
	if err != nil {
		return nil, nil, err
	}

	tree, err := staging.NewTree(m.cfg.Paths.StagingDir)
	if err != nil {
		return nil, nil, err
	}

	runID := uuid.NewString()
	ctx = faults.WithRunID(ctx, runID)
	agg := report.New()
	m.logger.Info("run started",
		logging.String("run_id", runID),
		logging.Int("bundles", len(bundles)),
		logging.Int("workers", m.workerCount()),
		logging.String("staging_tree", tree.Root))

	outcomes := m.runBundlePool(ctx, runID, bundles, tree)

	if err := ctx.Err(); err != nil {
		for _, outcome := range outcomes {
			agg.Add(outcome.report)
		}
		m.logger.Warn("run cancelled before icon merge", logging.String("run_id", runID))
		return tree, agg, err
	}

	m.mergeSharedArchives(ctx, tree, outcomes, agg)
	for _, outcome := range outcomes {
		agg.Add(outcome.report)
	}

	var buf strings.Builder
	if err := agg.WriteMissing(&buf, l); err == nil {
		if err := tree.WriteFile("missing_report.txt", []byte(buf.String())); err != nil {
			m.logger.Warn("write missing report failed", logging.Error(err))
		}
	}

	m.logger.Info("run finished",
		logging.String("run_id", runID),
		logging.Bool("has_failures", agg.HasFailures()))
	return tree, agg, nil
}

// Commit applies a staged tree to the configured output directory.
func (m *Manager) Commit(ctx context.Context, tree *staging.Tree) error {
	return staging.Commit(ctx, tree, m.cfg.Paths.OutputDir, m.logger)
}

// ResolveAll computes the missing report for every bundle in the roster
// without mutating anything.
func (m *Manager) ResolveAll(l *layout.Layout) (*report.Aggregate, error) {
	bundles, err := bundle.Discover(m.cfg.Paths.CharactersDir, l.Characters())
	if err != nil {
		return nil, err
	}
	agg := report.New()
	for _, b := range bundles {
		rep := bundle.Resolve(b, m.registry)
		agg.Add(report.Bundle{
			Character:    b.Character,
			Status:       string(queue.StatusDiscovered),
			MissingRoles: roleNames(rep.Missing()),
		})
	}
	return agg, nil
}

func (m *Manager) runPreflight() error {
	results := preflight.RunAll(m.cfg)
	var failures []string
	for _, r := range results {
		if r.Passed {
			continue
		}
		m.logger.Error("preflight check failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail))
		failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	if len(failures) > 0 {
		return faults.Wrap(faults.ErrConfig, "workflow", "preflight", strings.Join(failures, "; "), nil)
	}
	return nil
}

// runBundlePool processes bundles on a bounded worker pool and returns the
// collected outcomes. Cancellation stops dispatch; in-flight bundles finish
// their current write and report a cancelled status.
func (m *Manager) runBundlePool(ctx context.Context, runID string, bundles []bundle.Bundle, tree *staging.Tree) []bundleOutcome {
	tasks := make(chan bundle.Bundle)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes []bundleOutcome
	)

	for i := 0; i < m.workerCount(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range tasks {
				outcome := m.processBundle(ctx, runID, b, tree)
				mu.Lock()
				outcomes = append(outcomes, outcome)
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, b := range bundles {
		select {
		case <-ctx.Done():
			break dispatch
		case tasks <- b:
		}
	}
	close(tasks)
	wg.Wait()
	return outcomes
}

// processBundle walks one bundle through resolve, patch, inject and stage.
// Failures are isolated: the bundle lands on a terminal failure status and
// siblings keep going.
func (m *Manager) processBundle(ctx context.Context, runID string, b bundle.Bundle, tree *staging.Tree) bundleOutcome {
	outcome := bundleOutcome{report: report.Bundle{Character: b.Character}}

	item, err := m.store.NewBundle(ctx, runID, b.Character, b.Root)
	if err != nil {
		m.setLastError(err)
		outcome.report.Status = string(queue.StatusFailed)
		outcome.report.Error = fmt.Sprintf("ledger insert: %v", err)
		return outcome
	}
	ctx = faults.WithBundleID(ctx, item.ID)
	logger := logging.WithContext(ctx, m.logger.With(logging.String("character", b.Character)))

	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)
	defer func() {
		hbCancel()
		hbWG.Wait()
	}()

	fail := func(stageErr error) bundleOutcome {
		if errors.Is(stageErr, context.Canceled) {
			// Leave the in-flight status in place; the next run rolls
			// it back to the last stable status.
			outcome.report.Status = string(item.Status)
			outcome.report.Error = "cancelled"
			return outcome
		}
		m.setLastError(stageErr)
		item.SetFailed(stageErr.Error())
		item.Status = faults.FailureStatus(stageErr)
		if err := m.store.Update(context.WithoutCancel(ctx), item); err != nil {
			logger.Error("persist failure status failed", logging.Error(err))
		}
		logger.Error("bundle failed", logging.Error(stageErr))
		outcome.report.Status = string(item.Status)
		outcome.report.Error = stageErr.Error()
		return outcome
	}

	// Resolve.
	if err := m.transition(ctx, item, queue.StatusResolving, "Resolving"); err != nil {
		return fail(err)
	}
	rep := bundle.Resolve(b, m.registry)
	item.MissingJSON = marshalStrings(roleNames(rep.Missing()))
	item.Status = queue.StatusResolved
	item.SetProgress("Resolved", fmt.Sprintf("%d roles missing", len(rep.Missing())))
	if err := m.store.Update(ctx, item); err != nil {
		return fail(err)
	}

	// Patch missing audio containers.
	if err := m.transition(ctx, item, queue.StatusPatching, "Patching audio"); err != nil {
		return fail(err)
	}
	patchResult, patchErr := m.patcher.Patch(ctx, b, rep.MissingOfKind(mapping.KindAudio))
	if patchErr != nil {
		return fail(patchErr)
	}
	for _, created := range patchResult.Created {
		outcome.report.CreatedContainers = append(outcome.report.CreatedContainers, created.RelPath)
	}
	for _, unresolved := range patchResult.Unresolved {
		outcome.report.UnresolvedAssets = append(outcome.report.UnresolvedAssets, unresolved.Asset)
	}
	item.PatchedFiles = marshalStrings(outcome.report.CreatedContainers)
	item.ResolutionJSON = marshalPatchResult(patchResult)
	if len(patchResult.Unresolved) > 0 || len(patchResult.Gaps) > 0 {
		item.Status = queue.StatusPatchFailed
		item.SetProgress("Patch incomplete", fmt.Sprintf("%d containers unresolved",
			len(patchResult.Unresolved)+len(patchResult.Gaps)))
	} else {
		item.Status = queue.StatusPatched
		item.SetProgress("Patched", fmt.Sprintf("%d containers created", len(patchResult.Created)))
	}
	if err := m.store.Update(ctx, item); err != nil {
		return fail(err)
	}

	// Re-resolve so created containers clear their missing entries.
	rep = bundle.Resolve(b, m.registry)
	item.MissingJSON = marshalStrings(roleNames(rep.Missing()))
	outcome.report.MissingRoles = roleNames(rep.Missing())

	// Inject canonical bones into present model archives.
	if err := m.transition(ctx, item, queue.StatusInjecting, "Injecting bones"); err != nil {
		return fail(err)
	}
	boneOutcome, models, injectErr := m.injectBones(b, rep)
	outcome.report.Bones = boneOutcome
	if injectErr != nil {
		return fail(injectErr)
	}
	item.InjectedModels = marshalStrings(models)
	if boneOutcome.Ran {
		item.Status = queue.StatusInjected
		item.SetProgress("Injected", fmt.Sprintf("%d bones added", boneOutcome.Added))
	} else {
		item.Status = queue.StatusInjectSkipped
		item.SetProgress("Inject skipped", "no bone data for bundle models")
	}
	if err := m.store.Update(ctx, item); err != nil {
		return fail(err)
	}

	// Stage role files into the output tree.
	if err := m.transition(ctx, item, queue.StatusStaging, "Staging"); err != nil {
		return fail(err)
	}
	icons, fills, stageErr := m.stageBundle(b, rep, tree)
	if stageErr != nil {
		return fail(stageErr)
	}
	outcome.icons = icons
	outcome.report.TemplateFills = fills
	item.StagedPath = tree.Root
	item.Status = queue.StatusStaged
	item.LastHeartbeat = nil
	item.SetProgress("Staged", "bundle copied to staging tree")
	if err := m.store.Update(ctx, item); err != nil {
		return fail(err)
	}

	outcome.report.Status = string(queue.StatusStaged)
	logger.Info("bundle staged",
		logging.Int("missing_roles", len(outcome.report.MissingRoles)),
		logging.Int("created_containers", len(outcome.report.CreatedContainers)),
		logging.Int("bones_added", boneOutcome.Added))
	return outcome
}

func (m *Manager) transition(ctx context.Context, item *queue.Item, status queue.Status, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	item.Status = status
	item.SetProgress(label, label+" started")
	item.ErrorMessage = ""
	if err := m.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist %s transition: %w", status, err)
	}
	return nil
}

// injectBones runs the bone injector over every present model role. A
// corrupt archive is fatal for the bundle; an empty bone set or no
// matching model is a skip.
func (m *Manager) injectBones(b bundle.Bundle, rep bundle.Report) (report.BoneOutcome, []string, error) {
	var outcome report.BoneOutcome
	var models []string
	if m.bones.Empty() {
		return outcome, nil, nil
	}
	for _, status := range rep.Statuses {
		if status.Role.Kind != mapping.KindModel || !status.Present {
			continue
		}
		result, err := boneinject.Inject(b.AbsPath(status.RelPath), m.bones, m.logger)
		if err != nil {
			outcome.Error = err.Error()
			return outcome, nil, err
		}
		for _, mr := range result.Models {
			models = append(models, mr.Model)
		}
		if result.Changed {
			outcome.Ran = true
			outcome.Changed = true
		}
		if len(result.Models) > 0 {
			outcome.Ran = true
		}
		outcome.Added += result.Added()
	}
	return outcome, models, nil
}

// stageBundle copies the bundle's present model and audio role files into
// the staging tree and collects the icons for the shared archive merge.
// When sibling fill is enabled, a missing icon role borrows a present
// sibling icon from the same bundle and the fill is recorded.
func (m *Manager) stageBundle(b bundle.Bundle, rep bundle.Report, tree *staging.Tree) ([]iconmerge.Icon, []string, error) {
	var icons []iconmerge.Icon
	var fills []string
	var fallback *bundle.RoleStatus

	for i, status := range rep.Statuses {
		if status.Role.Kind == mapping.KindIcon && status.Present {
			fallback = &rep.Statuses[i]
			break
		}
	}

	for _, status := range rep.Statuses {
		switch status.Role.Kind {
		case mapping.KindIcon:
			source := status
			if !status.Present {
				if !m.cfg.Audio.FillFromSibling || fallback == nil {
					continue
				}
				source = *fallback
				fills = append(fills, status.Role.Name)
			}
			icons = append(icons, iconmerge.Icon{
				Character: b.Character,
				Texture:   textureName(status.RelPath),
				PNGPath:   b.AbsPath(source.RelPath),
			})
		default:
			if !status.Present {
				continue
			}
			if err := tree.CopyIn(status.RelPath, b.AbsPath(status.RelPath)); err != nil {
				return nil, nil, fmt.Errorf("stage %s: %w", status.RelPath, err)
			}
		}
	}
	return icons, fills, nil
}

// mergeSharedArchives copies the two shared UI archives into the staging
// tree and merges every staged bundle's icons into the copies. The two
// archives are processed concurrently, each single-threaded.
func (m *Manager) mergeSharedArchives(ctx context.Context, tree *staging.Tree, outcomes []bundleOutcome, agg *report.Aggregate) {
	if !m.cfg.IconMergeEnabled() {
		return
	}

	var icons []iconmerge.Icon
	staged := make(map[string]bool)
	for _, outcome := range outcomes {
		if outcome.report.Status != string(queue.StatusStaged) {
			continue
		}
		staged[outcome.report.Character] = true
		icons = append(icons, outcome.icons...)
	}
	if len(icons) == 0 {
		return
	}

	type archiveResult struct {
		rel    string
		result iconmerge.Result
		err    error
	}
	archives := []string{m.cfg.Paths.CommonArchivePath, m.cfg.Paths.MenuArchivePath}
	results := make([]archiveResult, len(archives))

	var wg sync.WaitGroup
	for i, src := range archives {
		wg.Add(1)
		go func(i int, src string) {
			defer wg.Done()
			rel := "UI/cmn/" + baseName(src)
			if err := tree.CopyIn(rel, src); err != nil {
				results[i] = archiveResult{rel: rel, err: err}
				return
			}
			result, err := iconmerge.Merge(ctx, tree.RomfsPath(rel), icons, m.logger)
			results[i] = archiveResult{rel: rel, result: result, err: err}
		}(i, src)
	}
	wg.Wait()

	merged := make(map[string]bool)
	dimension := make(map[string]string)
	for _, r := range results {
		if r.err != nil {
			agg.Note("shared archive %s: %v", r.rel, r.err)
			m.setLastError(r.err)
			continue
		}
		for _, character := range r.result.Merged {
			merged[character] = true
		}
		for _, failure := range r.result.Failures {
			if failure.Dimension {
				dimension[failure.Character] = failure.Reason
			}
		}
	}

	for i := range outcomes {
		character := outcomes[i].report.Character
		if !staged[character] || len(outcomes[i].icons) == 0 {
			continue
		}
		icon := report.IconOutcome{Merged: merged[character]}
		if reason, ok := dimension[character]; ok {
			icon.Reason = reason
		} else if !merged[character] {
			icon.Reason = "no matching texture in shared archives"
		}
		outcomes[i].report.Icons = icon
	}
}

func roleNames(statuses []bundle.RoleStatus) []string {
	var names []string
	for _, status := range statuses {
		names = append(names, status.Role.Name)
	}
	return names
}

func textureName(rel string) string {
	base := baseName(rel)
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return base
}

func baseName(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[idx+1:]
	}
	return p
}

func marshalStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func marshalPatchResult(result audiopatch.Result) string {
	data, err := json.Marshal(result)
	if err != nil {
		return ""
	}
	return string(data)
}

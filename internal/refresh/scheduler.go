package refresh

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pinggolf/cancercenter-offices/internal/matcher"
)

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampDuration(d, min, max time.Duration) time.Duration {
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}

// BuildCompanyIndexAndBanned loads the full company catalog and banned-office
// set once per batch, per §4.H. Exported so admin handlers can build the
// same immutable snapshot for a synchronous single-center refresh.
func (e *Engine) BuildCompanyIndexAndBanned(ctx context.Context) (*matcher.Index, map[string]bool, error) {
	companies, err := e.queries.ListAllCompanies(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading company catalog: %w", err)
	}
	matcherCompanies := make([]matcher.Company, 0, len(companies))
	for _, c := range companies {
		var aliases []string
		if c.KnownAliases.Valid {
			aliases = splitAliases(c.KnownAliases.String)
		}
		matcherCompanies = append(matcherCompanies, matcher.Company{
			ID: c.ID, Name: c.CompanyName, KnownAliases: aliases,
		})
	}
	index := matcher.BuildIndex(matcherCompanies)

	banned, err := e.loadBannedSet(ctx)
	if err != nil {
		return nil, nil, err
	}

	return index, banned, nil
}

func splitAliases(raw string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == '|' {
			if i > start {
				out = append(out, raw[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func (e *Engine) loadBannedSet(ctx context.Context) (map[string]bool, error) {
	rows, err := e.queries.DB().QueryContext(ctx, `SELECT osm_type, osm_id FROM banned_offices`)
	if err != nil {
		return nil, fmt.Errorf("loading banned offices: %w", err)
	}
	defer rows.Close()

	banned := make(map[string]bool)
	for rows.Next() {
		var osmType string
		var osmID int64
		if err := rows.Scan(&osmType, &osmID); err != nil {
			return nil, fmt.Errorf("scanning banned office: %w", err)
		}
		banned[bannedKey(osmType, osmID)] = true
	}
	return banned, rows.Err()
}

// ScheduledRefreshResult summarizes one run_scheduled_refresh pass.
type ScheduledRefreshResult struct {
	CentersProcessed int
	CentersFailed    int
	CursorBefore     int64
	CursorAfter      int64
}

// RunScheduledRefresh processes the next batch of centers after the stored
// cursor, per §4.H. It never fails the whole batch on a single center's
// error.
func (e *Engine) RunScheduledRefresh(ctx context.Context, batchSize int, throttle time.Duration) (ScheduledRefreshResult, error) {
	batchSize = clampInt(batchSize, 1, 200)

	cursor, err := e.queries.GetRefreshCursor(ctx)
	if err != nil {
		return ScheduledRefreshResult{}, fmt.Errorf("loading refresh cursor: %w", err)
	}
	result := ScheduledRefreshResult{CursorBefore: cursor}

	centers, err := e.queries.ListActiveCentersAfter(ctx, cursor, batchSize)
	if err != nil {
		return result, fmt.Errorf("listing centers for scheduled refresh: %w", err)
	}
	if len(centers) == 0 {
		if err := e.queries.SetRefreshCursor(ctx, 0); err != nil {
			return result, fmt.Errorf("resetting refresh cursor: %w", err)
		}
		result.CursorAfter = 0
		return result, nil
	}

	index, banned, err := e.BuildCompanyIndexAndBanned(ctx)
	if err != nil {
		return result, err
	}

	runID := uuid.NewString()
	var lastID int64
	for i, center := range centers {
		refreshResult, err := e.RefreshCenter(ctx, center, CenterRefreshOptions{
			CompanyIndex: index,
			BannedSet:    banned,
		})
		e.publishCenterComplete(runID, center.ID, refreshResult, err)
		if err != nil {
			log.Printf("refresh: center %d failed: %v", center.ID, err)
			result.CentersFailed++
		} else {
			result.CentersProcessed++
		}
		lastID = center.ID

		if i < len(centers)-1 && throttle > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(throttle):
			}
		}
	}

	if err := e.queries.SetRefreshCursor(ctx, lastID); err != nil {
		return result, fmt.Errorf("advancing refresh cursor: %w", err)
	}
	result.CursorAfter = lastID

	return result, nil
}

// RefreshAllOptions configures a full sweep of every active center.
type RefreshAllOptions struct {
	ThrottleMs       int
	BatchSize        int
	RadiusM          float64
	MaxOffices       int
	FullClean        bool
	CenterRetryCount int
	RetryDelayMs     int
}

// RefreshAllResult aggregates counts across a full sweep.
type RefreshAllResult struct {
	CentersProcessed int
	CentersFailed    int
	OK               bool
}

// RunRefreshAll walks every active center, retrying each up to
// centerRetryCount+1 times, per §4.H.
func (e *Engine) RunRefreshAll(ctx context.Context, opts RefreshAllOptions) (RefreshAllResult, error) {
	throttle := clampDuration(time.Duration(opts.ThrottleMs)*time.Millisecond, 0, 15*time.Second)
	retryDelay := clampDuration(time.Duration(opts.RetryDelayMs)*time.Millisecond, 0, 60*time.Second)
	batchSize := clampInt(opts.BatchSize, 1, 200)
	retryCount := opts.CenterRetryCount
	if retryCount < 0 {
		retryCount = 0
	}
	maxOffices := opts.MaxOffices
	if maxOffices > 10000 {
		maxOffices = 10000
	}

	if opts.FullClean {
		if err := e.queries.PurgeAllOfficePoints(ctx); err != nil {
			return RefreshAllResult{}, fmt.Errorf("purging office points before full refresh: %w", err)
		}
	}

	index, banned, err := e.BuildCompanyIndexAndBanned(ctx)
	if err != nil {
		return RefreshAllResult{}, err
	}

	runID := uuid.NewString()
	result := RefreshAllResult{}

	var cursor int64
	for {
		centers, err := e.queries.ListActiveCentersAfter(ctx, cursor, batchSize)
		if err != nil {
			return result, fmt.Errorf("listing centers for full refresh: %w", err)
		}
		if len(centers) == 0 {
			break
		}

		for _, center := range centers {
			var refreshErr error
			var refreshResult CenterRefreshResult
			for attempt := 0; attempt <= retryCount; attempt++ {
				refreshResult, refreshErr = e.RefreshCenter(ctx, center, CenterRefreshOptions{
					RadiusM:      opts.RadiusM,
					MaxOffices:   maxOffices,
					CompanyIndex: index,
					BannedSet:    banned,
				})
				if refreshErr == nil {
					break
				}
				if attempt < retryCount && retryDelay > 0 {
					select {
					case <-ctx.Done():
						return result, ctx.Err()
					case <-time.After(retryDelay):
					}
				}
			}

			e.publishCenterComplete(runID, center.ID, refreshResult, refreshErr)
			if refreshErr != nil {
				log.Printf("refresh: center %d failed after retries: %v", center.ID, refreshErr)
				result.CentersFailed++
			} else {
				result.CentersProcessed++
			}

			if throttle > 0 {
				select {
				case <-ctx.Done():
					return result, ctx.Err()
				case <-time.After(throttle):
				}
			}
		}

		cursor = centers[len(centers)-1].ID
		if err := e.queries.SetRefreshCursor(ctx, cursor); err != nil {
			return result, fmt.Errorf("advancing refresh cursor: %w", err)
		}
	}

	result.OK = result.CentersFailed == 0
	return result, nil
}

package growth

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "growthcurves/internal/errors"
	"growthcurves/internal/shared/testutil"
)

func TestRunBatch_IsolatesFailures(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	p := NewPipeline(testOptions(), WithLogger(logger))

	good := unitRequest(testutil.NormalCohort(100, 50))
	good.Unit = Unit{Sex: "F", Tissue: "GM", Biomarker: "FA"}

	ages := []float64{1, 2, 3, 4, 5}
	blank := []float64{nanValue(), nanValue(), nanValue(), nanValue(), nanValue()}
	empty := Request{
		Unit:         Unit{Sex: "M", Tissue: "GM", Biomarker: "MD"},
		Observations: NewFrame().SetColumn("age", ages).SetColumn("value", blank),
		Covariate:    "age",
		Response:     "value",
	}

	missing := unitRequest(testutil.NormalCohort(50, 52))
	missing.Unit = Unit{Sex: "M", Tissue: "WM", Biomarker: "FA"}
	missing.Response = "WM_FA"

	last := unitRequest(testutil.NormalCohort(100, 53))
	last.Unit = Unit{Sex: "M", Tissue: "WM", Biomarker: "MD"}

	outcomes := p.RunBatch(context.Background(), []Request{good, empty, missing, last})
	require.Len(t, outcomes, 4)

	assert.Equal(t, UnitFitted, outcomes[0].Status)
	assert.NotNil(t, outcomes[0].Result)

	assert.Equal(t, UnitFailed, outcomes[1].Status)
	assert.Equal(t, StageClean, outcomes[1].Stage)
	assert.True(t, apperrors.IsType(outcomes[1].Err, apperrors.ErrTypeEmptyDataset))
	assert.Equal(t, "clean: no valid data after removing missing values for biomarker MD, sex M, tissue GM",
		outcomes[1].Diagnostic())

	assert.Equal(t, UnitFailed, outcomes[2].Status)
	assert.True(t, apperrors.IsType(outcomes[2].Err, apperrors.ErrTypeMissingColumn))

	assert.Equal(t, UnitFitted, outcomes[3].Status)
	assert.Empty(t, outcomes[3].Diagnostic())

	assert.Equal(t, BatchSummary{Fitted: 2, Failed: 2}, Summarize(outcomes))
	assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 2)
	testutil.AssertLogAttr(t, handler, "stage", StageClean)
}

func TestRunBatch_CancelledSkipsRemaining(t *testing.T) {
	p := NewPipeline(testOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := p.RunBatch(ctx, []Request{
		unitRequest(testutil.NormalCohort(50, 54)),
		unitRequest(testutil.NormalCohort(50, 55)),
	})
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Equal(t, UnitSkipped, o.Status)
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}

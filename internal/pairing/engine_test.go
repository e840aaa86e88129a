package pairing

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gradienthealth/studyselect/internal/config"
	"github.com/gradienthealth/studyselect/internal/model"
)

func testSelection() config.Selection {
	return config.Selection{
		MaxDays:             60,
		PETReportTerms:      []string{"nodule"},
		CTChestTerms:        []string{"chest", "thorax"},
		CTNonContrastTerms:  []string{"without contrast", "non-contrast"},
		CTWithContrastTerms: []string{"with contrast", "post contrast"},
		CTExcludeTerms:      []string{"low-dose screening", "lung cancer screening"},
		CTLocalizerTerms:    []string{"scout", "localizer", "topogram"},
	}
}

func testEngine() *Engine {
	return New(testSelection(), zerolog.Nop())
}

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func ctStudy(uid, patient, day string) model.Study {
	return model.Study{
		StudyUID:   uid,
		PatientID:  patient,
		StudyDate:  date(day),
		ReportText: "CT chest without contrast. 6mm nodule in the right upper lobe.",
		Series: []model.SeriesRecord{
			{SeriesUID: uid + ".1", Modality: model.ModalityCT, SeriesDescription: "AXIAL CHEST", BodyPartExamined: "CHEST"},
		},
	}
}

func petStudy(uid, patient, day string) model.Study {
	return model.Study{
		StudyUID:   uid,
		PatientID:  patient,
		StudyDate:  date(day),
		ReportText: "PET/CT for evaluation of pulmonary nodule.",
		Series: []model.SeriesRecord{
			{SeriesUID: uid + ".1", Modality: model.ModalityPT},
			{SeriesUID: uid + ".2", Modality: model.ModalityCT},
		},
	}
}

func TestPair_NearestPriorWithinWindow(t *testing.T) {
	studies := []model.Study{
		petStudy("P1", "pat1", "2024-03-01"),
		ctStudy("C1", "pat1", "2024-01-15"), // 46 days prior
		ctStudy("C2", "pat1", "2024-02-20"), // 10 days prior, nearest
		ctStudy("C3", "pat1", "2023-12-01"), // outside window
		ctStudy("C4", "pat1", "2024-03-05"), // after PET
	}

	pairs := testEngine().Pair(studies)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	p := pairs[0]
	if p.CTStudyUID != "C2" {
		t.Errorf("paired CT = %s, want C2", p.CTStudyUID)
	}
	if p.DaysBetween != 10 {
		t.Errorf("DaysBetween = %d, want 10", p.DaysBetween)
	}
}

func TestPair_WindowInvariant(t *testing.T) {
	studies := []model.Study{
		petStudy("P1", "pat1", "2024-03-01"),
		ctStudy("C1", "pat1", "2024-01-01"),
		petStudy("P2", "pat2", "2024-06-01"),
		ctStudy("C2", "pat2", "2024-05-31"),
	}

	for _, p := range testEngine().Pair(studies) {
		if !p.CTDate.Before(p.PETDate) {
			t.Errorf("pair %s/%s: CT date not before PET date", p.PETStudyUID, p.CTStudyUID)
		}
		if p.DaysBetween < 0 || p.DaysBetween > 60 {
			t.Errorf("pair %s/%s: DaysBetween %d outside window", p.PETStudyUID, p.CTStudyUID, p.DaysBetween)
		}
	}
}

func TestPair_AtMostOnePerPET(t *testing.T) {
	studies := []model.Study{
		petStudy("P1", "pat1", "2024-03-01"),
		ctStudy("C1", "pat1", "2024-02-01"),
		ctStudy("C2", "pat1", "2024-02-15"),
		ctStudy("C3", "pat1", "2024-02-20"),
	}

	pairs := testEngine().Pair(studies)
	seen := map[string]bool{}
	for _, p := range pairs {
		if seen[p.PETStudyUID] {
			t.Fatalf("pet study %s emitted twice", p.PETStudyUID)
		}
		seen[p.PETStudyUID] = true
	}
	if len(pairs) != 1 {
		t.Errorf("expected 1 pair, got %d", len(pairs))
	}
}

func TestPair_Deterministic(t *testing.T) {
	base := []model.Study{
		petStudy("P1", "pat1", "2024-03-01"),
		petStudy("P2", "pat2", "2024-04-01"),
		ctStudy("C1", "pat1", "2024-02-01"),
		ctStudy("C2", "pat1", "2024-02-10"),
		ctStudy("C3", "pat2", "2024-03-15"),
	}

	want := testEngine().Pair(base)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]model.Study, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := testEngine().Pair(shuffled)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("run %d: pair sequence differs under input shuffle\ngot:  %+v\nwant: %+v", i, got, want)
		}
	}
}

func TestPair_TieBreakChestOnlyThenSliceThenUID(t *testing.T) {
	thin, thick := 1.0, 5.0

	mixed := ctStudy("C-mixed", "pat1", "2024-02-20")
	mixed.Series = append(mixed.Series, model.SeriesRecord{
		SeriesUID: "C-mixed.2", Modality: model.ModalityCT, SeriesDescription: "AXIAL ABDOMEN", BodyPartExamined: "ABDOMEN",
	})

	chestThick := ctStudy("C-thick", "pat1", "2024-02-20")
	chestThick.Series[0].SliceThickness = &thick

	chestThin := ctStudy("C-thin", "pat1", "2024-02-20")
	chestThin.Series[0].SliceThickness = &thin

	// Same date: chest-only beats chest+other, thinner slice beats thicker.
	studies := []model.Study{petStudy("P1", "pat1", "2024-03-01"), mixed, chestThick, chestThin}
	pairs := testEngine().Pair(studies)
	if len(pairs) != 1 || pairs[0].CTStudyUID != "C-thin" {
		t.Fatalf("expected C-thin to win tie-break, got %+v", pairs)
	}

	// Equal on all attributes: smallest UID wins.
	a := ctStudy("C-aaa", "pat1", "2024-02-20")
	b := ctStudy("C-bbb", "pat1", "2024-02-20")
	pairs = testEngine().Pair([]model.Study{petStudy("P1", "pat1", "2024-03-01"), b, a})
	if len(pairs) != 1 || pairs[0].CTStudyUID != "C-aaa" {
		t.Fatalf("expected C-aaa to win UID tie-break, got %+v", pairs)
	}
}

func TestPair_WithContrastTakesPrecedence(t *testing.T) {
	c := ctStudy("C1", "pat1", "2024-02-20")
	c.ReportText = "CT chest without contrast followed by imaging with contrast. Nodule noted."

	pairs := testEngine().Pair([]model.Study{petStudy("P1", "pat1", "2024-03-01"), c})
	if len(pairs) != 0 {
		t.Fatalf("with-contrast phrase should exclude the study, got %+v", pairs)
	}
}

func TestPair_ScreeningExcluded(t *testing.T) {
	c := ctStudy("C1", "pat1", "2024-02-20")
	c.ReportText = "Low-dose screening CT of the chest without contrast. Small nodule."

	pairs := testEngine().Pair([]model.Study{petStudy("P1", "pat1", "2024-03-01"), c})
	if len(pairs) != 0 {
		t.Fatalf("screening study should be excluded, got %+v", pairs)
	}
}

func TestPair_LocalizerOnlyExcluded(t *testing.T) {
	c := ctStudy("C1", "pat1", "2024-02-20")
	c.Series = []model.SeriesRecord{
		{SeriesUID: "C1.1", Modality: model.ModalityCT, SeriesDescription: "SCOUT", BodyPartExamined: "CHEST"},
		{SeriesUID: "C1.2", Modality: model.ModalityCT, SeriesDescription: "LATERAL LOCALIZER", BodyPartExamined: "CHEST"},
	}

	pairs := testEngine().Pair([]model.Study{petStudy("P1", "pat1", "2024-03-01"), c})
	if len(pairs) != 0 {
		t.Fatalf("localizer-only study should be excluded, got %+v", pairs)
	}
}

func TestPair_ChestCoverageFromReportAlone(t *testing.T) {
	c := ctStudy("C1", "pat1", "2024-02-20")
	c.Series[0].BodyPartExamined = ""

	pairs := testEngine().Pair([]model.Study{petStudy("P1", "pat1", "2024-03-01"), c})
	if len(pairs) != 1 {
		t.Fatalf("report text mentioning chest should satisfy coverage, got %+v", pairs)
	}
}

func TestPair_PETPrefilterDropsNonMatching(t *testing.T) {
	p := petStudy("P1", "pat1", "2024-03-01")
	p.ReportText = "PET/CT for lymphoma restaging."

	pairs := testEngine().Pair([]model.Study{p, ctStudy("C1", "pat1", "2024-02-20")})
	if len(pairs) != 0 {
		t.Fatalf("pet report without prefilter terms should be dropped, got %+v", pairs)
	}
}

func TestPair_AcquisitionDateOverridesStudyDate(t *testing.T) {
	p := petStudy("P1", "pat1", "2024-01-01")
	p.Series[0].AcquisitionDate = date("2024-03-01") // PT series date wins

	c := ctStudy("C1", "pat1", "2024-02-20")
	pairs := testEngine().Pair([]model.Study{p, c})
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if pairs[0].DaysBetween != 10 {
		t.Errorf("DaysBetween = %d, want 10 (from PT acquisition date)", pairs[0].DaysBetween)
	}
}

func TestPair_MissingAllDatesExcluded(t *testing.T) {
	p := petStudy("P1", "pat1", "2024-03-01")
	p.StudyDate = nil // no study date, no PT acquisition dates

	pairs := testEngine().Pair([]model.Study{p, ctStudy("C1", "pat1", "2024-02-20")})
	if len(pairs) != 0 {
		t.Fatalf("dateless pet study should be excluded, got %+v", pairs)
	}
}

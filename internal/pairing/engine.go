package pairing

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/gradienthealth/studyselect/internal/config"
	"github.com/gradienthealth/studyselect/internal/model"
)

// Engine pairs each qualifying PET/CT study with its nearest prior
// diagnostic CT. It is a pure, single-threaded transformation: for a fixed
// study set and config the emitted pair sequence is identical across runs.
type Engine struct {
	maxDays      int
	petTerms     TermSet
	chestTerms   TermSet
	nonContrast  TermSet
	withContrast TermSet
	exclude      TermSet
	localizer    TermSet
	log          zerolog.Logger
}

// New builds an Engine from the selection config.
func New(sel config.Selection, log zerolog.Logger) *Engine {
	return &Engine{
		maxDays:      sel.MaxDays,
		petTerms:     NewTermSet(sel.PETReportTerms),
		chestTerms:   NewTermSet(sel.CTChestTerms),
		nonContrast:  NewTermSet(sel.CTNonContrastTerms),
		withContrast: NewTermSet(sel.CTWithContrastTerms),
		exclude:      NewTermSet(sel.CTExcludeTerms),
		localizer:    NewTermSet(sel.CTLocalizerTerms),
		log:          log,
	}
}

// ctCandidate is a qualifying CT-only study with its resolved date and the
// attributes the tie-break inspects.
type ctCandidate struct {
	study     *model.Study
	date      time.Time
	chestOnly bool
	minSlice  float64
}

// Pair produces at most one CandidatePair per PET/CT study. PET studies
// with no qualifying prior CT are dropped, not rejected.
func (e *Engine) Pair(studies []model.Study) []model.CandidatePair {
	var pets []*model.Study
	ctsByPatient := make(map[string][]ctCandidate)

	for i := range studies {
		s := &studies[i]
		switch {
		case s.IsPETCT():
			if e.petTerms.Empty() || e.petTerms.Match(s.ReportText) {
				pets = append(pets, s)
			}
		case s.IsCTOnly():
			if !e.qualifiesCT(s) {
				continue
			}
			date := s.ModalityDate(model.ModalityCT)
			if date == nil {
				e.log.Warn().Str("study_uid", s.StudyUID).Msg("ct study has no resolvable date, excluded from pairing")
				continue
			}
			ctsByPatient[s.PatientID] = append(ctsByPatient[s.PatientID], ctCandidate{
				study:     s,
				date:      *date,
				chestOnly: e.chestOnlyCoverage(s),
				minSlice:  minCTSliceThickness(s),
			})
		}
	}

	// Stable emission order regardless of input or map iteration order.
	sort.Slice(pets, func(i, j int) bool {
		if pets[i].PatientID != pets[j].PatientID {
			return pets[i].PatientID < pets[j].PatientID
		}
		return pets[i].StudyUID < pets[j].StudyUID
	})

	var pairs []model.CandidatePair
	for _, pet := range pets {
		petDate := pet.ModalityDate(model.ModalityPT)
		if petDate == nil {
			e.log.Warn().Str("study_uid", pet.StudyUID).Msg("pet study has no resolvable date, excluded from pairing")
			continue
		}
		best, ok := e.selectPrior(ctsByPatient[pet.PatientID], *petDate)
		if !ok {
			continue
		}
		pairs = append(pairs, model.CandidatePair{
			PETStudyUID: pet.StudyUID,
			CTStudyUID:  best.study.StudyUID,
			PatientID:   pet.PatientID,
			PETDate:     *petDate,
			CTDate:      best.date,
			DaysBetween: daysBetween(best.date, *petDate),
			PETReport:   pet.ReportText,
			CTReport:    best.study.ReportText,
		})
	}

	e.log.Info().
		Int("pet_studies", len(pets)).
		Int("pairs", len(pairs)).
		Msg("pairing complete")
	return pairs
}

// qualifiesCT applies the CT-only inclusion predicates. Empty term sets
// disable the corresponding predicate rather than failing every study.
func (e *Engine) qualifiesCT(s *model.Study) bool {
	// Chest coverage: any series body part or the report matches.
	if !e.chestTerms.Empty() {
		covered := e.chestTerms.Match(s.ReportText)
		for i := range s.Series {
			if covered {
				break
			}
			covered = e.chestTerms.Match(s.Series[i].BodyPartExamined)
		}
		if !covered {
			return false
		}
	}

	// Non-contrast: a with-contrast phrase excludes the study even when a
	// non-contrast phrase also appears.
	if e.withContrast.Match(s.ReportText) {
		return false
	}
	if !e.nonContrast.Empty() && !e.nonContrast.Match(s.ReportText) {
		return false
	}

	// Screening/low-dose exclusion.
	if e.exclude.Match(s.ReportText) {
		return false
	}

	// Localizer-only: at least one CT series must not be a scout.
	if !e.localizer.Empty() {
		real := false
		for i := range s.Series {
			sr := &s.Series[i]
			if sr.Modality == model.ModalityCT && !e.localizer.Match(sr.SeriesDescription) {
				real = true
				break
			}
		}
		if !real {
			return false
		}
	}

	return true
}

// selectPrior picks the nearest prior CT within the window, breaking ties by
// chest-only coverage, then thinnest slice, then smallest study UID.
func (e *Engine) selectPrior(cands []ctCandidate, petDate time.Time) (ctCandidate, bool) {
	var best ctCandidate
	found := false
	for _, c := range cands {
		if !c.date.Before(petDate) {
			continue
		}
		days := daysBetween(c.date, petDate)
		if days > e.maxDays {
			continue
		}
		if !found || better(c, best, petDate) {
			best = c
			found = true
		}
	}
	return best, found
}

func better(a, b ctCandidate, petDate time.Time) bool {
	da, db := daysBetween(a.date, petDate), daysBetween(b.date, petDate)
	if da != db {
		return da < db
	}
	if a.chestOnly != b.chestOnly {
		return a.chestOnly
	}
	if a.minSlice != b.minSlice {
		return a.minSlice < b.minSlice
	}
	return a.study.StudyUID < b.study.StudyUID
}

// chestOnlyCoverage reports whether every populated body part matches the
// chest term set, with at least one populated. Studies with no body part
// metadata are not chest-only.
func (e *Engine) chestOnlyCoverage(s *model.Study) bool {
	seen := false
	for i := range s.Series {
		bp := s.Series[i].BodyPartExamined
		if bp == "" {
			continue
		}
		seen = true
		if !e.chestTerms.Match(bp) {
			return false
		}
	}
	return seen
}

// minCTSliceThickness returns the thinnest recorded CT slice, or +Inf when
// no CT series records a thickness.
func minCTSliceThickness(s *model.Study) float64 {
	min := math.Inf(1)
	for i := range s.Series {
		sr := &s.Series[i]
		if sr.Modality != model.ModalityCT || sr.SliceThickness == nil {
			continue
		}
		if *sr.SliceThickness < min {
			min = *sr.SliceThickness
		}
	}
	return min
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

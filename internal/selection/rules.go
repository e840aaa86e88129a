package selection

import (
	"strings"

	"github.com/gradienthealth/studyselect/internal/model"
)

var allowedDiagnoses = map[string]bool{
	"Primary Lung Cancer": true,
	"No Cancer":           true,
}

const allowedClinicalReason = "Indeterminate Pulmonary Nodule"

// Evaluate applies every eligibility rule to a pair's resolved extraction
// records and returns the decision with an exhaustive reason list: a pair
// violating several rules reports all of them, not just the first.
func Evaluate(pair model.CandidatePair, ct, pet *model.ExtractionRecord) model.SelectionDecision {
	var reasons []model.ReasonCode

	// An extraction failure on either role blocks selection outright and
	// skips that role's content rules; the other role is still evaluated.
	if extractionFailed(ct) || extractionFailed(pet) {
		reasons = append(reasons, model.ReasonExtractionError)
	}

	if ct != nil && ct.Status == model.ExtractionSuccess && ct.CT != nil {
		reasons = append(reasons, evaluateCT(ct.CT)...)
	}
	if pet != nil && pet.Status == model.ExtractionSuccess && pet.PET != nil {
		reasons = append(reasons, evaluatePET(pet.PET)...)
	}

	return model.SelectionDecision{
		PETStudyUID: pair.PETStudyUID,
		CTStudyUID:  pair.CTStudyUID,
		Selected:    len(reasons) == 0,
		Reasons:     reasons,
	}
}

func extractionFailed(rec *model.ExtractionRecord) bool {
	return rec == nil || rec.Status != model.ExtractionSuccess
}

func evaluateCT(f *model.CTFields) []model.ReasonCode {
	var reasons []model.ReasonCode
	if !containsChest(f.Regions) {
		reasons = append(reasons, model.ReasonCTNotChest)
	}
	if strings.ToLower(strings.TrimSpace(f.ContrastAgent)) != "none" {
		reasons = append(reasons, model.ReasonCTContrastPresent)
	}
	if len(f.LungNodules) == 0 {
		reasons = append(reasons, model.ReasonNoLungNodules)
	}
	return reasons
}

func evaluatePET(f *model.PETFields) []model.ReasonCode {
	var reasons []model.ReasonCode
	if f.ClinicalReason != allowedClinicalReason {
		reasons = append(reasons, model.ReasonPETReasonNotNodule)
	}
	if !allowedDiagnoses[f.PrimaryDiagnosis] {
		reasons = append(reasons, model.ReasonPETPrimaryDxExcluded)
	}
	if len(f.LymphHypermetabolic) > 0 {
		reasons = append(reasons, model.ReasonPETLymphHyper)
	}
	if len(f.OtherHypermetabolic) > 0 {
		reasons = append(reasons, model.ReasonPETOtherHyper)
	}
	return reasons
}

func containsChest(regions []string) bool {
	for _, r := range regions {
		if strings.Contains(strings.ToLower(r), "chest") {
			return true
		}
	}
	return false
}

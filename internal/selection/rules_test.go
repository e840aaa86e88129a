package selection

import (
	"reflect"
	"testing"

	"github.com/gradienthealth/studyselect/internal/model"
)

func pair() model.CandidatePair {
	return model.CandidatePair{PETStudyUID: "P1", CTStudyUID: "C1", PatientID: "pat1", DaysBetween: 45}
}

func goodCT() *model.ExtractionRecord {
	return &model.ExtractionRecord{
		StudyUID: "C1",
		Role:     model.RoleCT,
		Status:   model.ExtractionSuccess,
		CT: &model.CTFields{
			Regions:       []string{"chest"},
			ContrastAgent: "None",
			LungNodules:   []string{"6mm RUL nodule"},
		},
	}
}

func goodPET() *model.ExtractionRecord {
	return &model.ExtractionRecord{
		StudyUID: "P1",
		Role:     model.RolePET,
		Status:   model.ExtractionSuccess,
		PET: &model.PETFields{
			ClinicalReason:      "Indeterminate Pulmonary Nodule",
			PrimaryDiagnosis:    "No Cancer",
			LymphHypermetabolic: nil,
			OtherHypermetabolic: nil,
		},
	}
}

func TestEvaluate_AllRulesPass(t *testing.T) {
	d := Evaluate(pair(), goodCT(), goodPET())
	if !d.Selected {
		t.Fatalf("expected selected, got reasons %v", d.Reasons)
	}
	if len(d.Reasons) != 0 {
		t.Errorf("selected decision must have empty reasons, got %v", d.Reasons)
	}
}

func TestEvaluate_OtherHypermetabolicRejects(t *testing.T) {
	pet := goodPET()
	pet.PET.OtherHypermetabolic = []string{"liver"}

	d := Evaluate(pair(), goodCT(), pet)
	if d.Selected {
		t.Fatal("expected rejection")
	}
	want := []model.ReasonCode{model.ReasonPETOtherHyper}
	if !reflect.DeepEqual(d.Reasons, want) {
		t.Errorf("reasons = %v, want %v", d.Reasons, want)
	}
}

func TestEvaluate_ExhaustiveReasons(t *testing.T) {
	ct := goodCT()
	ct.CT.Regions = []string{"abdomen"}
	ct.CT.ContrastAgent = "Omnipaque 350"
	ct.CT.LungNodules = nil

	pet := goodPET()
	pet.PET.ClinicalReason = "Cancer Patient Monitoring"
	pet.PET.PrimaryDiagnosis = "Lymphoma"
	pet.PET.LymphHypermetabolic = []string{"mediastinal"}
	pet.PET.OtherHypermetabolic = []string{"liver", "bone"}

	d := Evaluate(pair(), ct, pet)
	if d.Selected {
		t.Fatal("expected rejection")
	}
	want := []model.ReasonCode{
		model.ReasonCTNotChest,
		model.ReasonCTContrastPresent,
		model.ReasonNoLungNodules,
		model.ReasonPETReasonNotNodule,
		model.ReasonPETPrimaryDxExcluded,
		model.ReasonPETLymphHyper,
		model.ReasonPETOtherHyper,
	}
	if !reflect.DeepEqual(d.Reasons, want) {
		t.Errorf("reasons = %v, want %v", d.Reasons, want)
	}
}

func TestEvaluate_CTExtractionErrorSkipsCTRules(t *testing.T) {
	ct := &model.ExtractionRecord{
		StudyUID: "C1", Role: model.RoleCT,
		Status: model.ExtractionError, ErrorDetail: "retries exhausted",
	}

	d := Evaluate(pair(), ct, goodPET())
	if d.Selected {
		t.Fatal("expected rejection")
	}
	want := []model.ReasonCode{model.ReasonExtractionError}
	if !reflect.DeepEqual(d.Reasons, want) {
		t.Errorf("reasons = %v, want %v (CT content rules must be skipped)", d.Reasons, want)
	}
}

func TestEvaluate_PETErrorStillEvaluatesCTRules(t *testing.T) {
	pet := &model.ExtractionRecord{
		StudyUID: "P1", Role: model.RolePET,
		Status: model.ExtractionError, ErrorDetail: "timeout",
	}
	ct := goodCT()
	ct.CT.ContrastAgent = "Iohexol"

	d := Evaluate(pair(), ct, pet)
	want := []model.ReasonCode{model.ReasonExtractionError, model.ReasonCTContrastPresent}
	if !reflect.DeepEqual(d.Reasons, want) {
		t.Errorf("reasons = %v, want %v", d.Reasons, want)
	}
}

func TestEvaluate_ContrastSentinelCaseInsensitive(t *testing.T) {
	for _, agent := range []string{"none", "None", "NONE", "  none  "} {
		ct := goodCT()
		ct.CT.ContrastAgent = agent
		d := Evaluate(pair(), ct, goodPET())
		if !d.Selected {
			t.Errorf("agent %q should pass the contrast rule, got %v", agent, d.Reasons)
		}
	}
}

func TestEvaluate_PrimaryLungCancerAllowed(t *testing.T) {
	pet := goodPET()
	pet.PET.PrimaryDiagnosis = "Primary Lung Cancer"
	d := Evaluate(pair(), goodCT(), pet)
	if !d.Selected {
		t.Errorf("Primary Lung Cancer should be allowed, got %v", d.Reasons)
	}
}

package model

// ReasonCode is a stable identifier for one specific rule violation.
type ReasonCode string

const (
	ReasonExtractionError      ReasonCode = "extraction_error"
	ReasonCTNotChest           ReasonCode = "ct_not_chest"
	ReasonCTContrastPresent    ReasonCode = "ct_contrast_present"
	ReasonNoLungNodules        ReasonCode = "no_lung_nodules"
	ReasonPETReasonNotNodule   ReasonCode = "pet_reason_not_nodule"
	ReasonPETPrimaryDxExcluded ReasonCode = "pet_primary_dx_excluded"
	ReasonPETLymphHyper        ReasonCode = "pet_lymph_hypermetabolic"
	ReasonPETOtherHyper        ReasonCode = "pet_other_hypermetabolic"
)

// SelectionDecision is the append-only audit record for one candidate pair.
// Selected is true iff Reasons is empty.
type SelectionDecision struct {
	PETStudyUID string
	CTStudyUID  string
	Selected    bool
	Reasons     []ReasonCode
}

package warehouse

import (
	"sort"

	"github.com/gradienthealth/studyselect/internal/model"
	"github.com/gradienthealth/studyselect/internal/normalize"
)

// AssembleStudies groups flat series rows into Study values, one per study
// UID, with series ordered by series UID. The output is sorted by
// (patient_id, study_uid) so downstream stages see a stable order.
func AssembleStudies(rows []model.StudyRow) []model.Study {
	byUID := make(map[string]*model.Study)
	order := make([]string, 0)

	for i := range rows {
		r := &rows[i]
		if r.StudyUID == "" || r.SeriesUID == "" {
			continue
		}
		s, ok := byUID[r.StudyUID]
		if !ok {
			s = &model.Study{
				StudyUID:   r.StudyUID,
				PatientID:  r.PatientID,
				StudyDate:  normalize.ParseDate(r.StudyDate),
				ReportText: r.ReportText,
			}
			byUID[r.StudyUID] = s
			order = append(order, r.StudyUID)
		}
		s.Series = append(s.Series, model.SeriesRecord{
			SeriesUID:          r.SeriesUID,
			Modality:           model.Modality(r.Modality),
			AcquisitionDate:    normalize.ParseDate(r.AcquisitionDate),
			SeriesDescription:  r.SeriesDescription,
			BodyPartExamined:   r.BodyPartExamined,
			SliceThickness:     r.SliceThickness,
			ContrastBolusAgent: r.ContrastBolusAgent,
		})
	}

	studies := make([]model.Study, 0, len(order))
	for _, uid := range order {
		s := byUID[uid]
		sort.Slice(s.Series, func(i, j int) bool {
			return s.Series[i].SeriesUID < s.Series[j].SeriesUID
		})
		studies = append(studies, *s)
	}
	sort.Slice(studies, func(i, j int) bool {
		if studies[i].PatientID != studies[j].PatientID {
			return studies[i].PatientID < studies[j].PatientID
		}
		return studies[i].StudyUID < studies[j].StudyUID
	})
	return studies
}

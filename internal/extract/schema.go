package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gradienthealth/studyselect/internal/model"
)

// ErrSchemaViolation marks a well-formed JSON response that does not
// conform to the role's field schema. It is terminal, never retried.
type ErrSchemaViolation struct {
	Role   model.Role
	Detail string
}

func (e *ErrSchemaViolation) Error() string {
	return fmt.Sprintf("schema_violation (%s): %s", e.Role, e.Detail)
}

var requiredKeys = map[model.Role][]string{
	model.RoleCT: {"CT_Regions", "CT_Contrast_Agent", "Lung_Nodules"},
	model.RolePET: {
		"Clinical_Reason",
		"Primary_Diagnosis",
		"Lung_Hypermetabolic_Regions",
		"Lymph_Nodes_Hypermetabolic_Regions",
		"Other_Hypermetabolic_Regions",
	},
}

// parseObject decodes text into a JSON object, tolerating prose around the
// object by falling back to the outermost brace pair.
func parseObject(text string) (map[string]json.RawMessage, error) {
	text = strings.TrimSpace(text)
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj, nil
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("response is not a JSON object")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("decode embedded JSON object: %w", err)
	}
	return obj, nil
}

// validateKeys enforces the role's schema on the decoded object: every
// required key must be present, and no required key of the other role may
// appear. Field bleed between modalities is the documented failure mode of
// combining the two report texts, so a foreign key is treated as terminal.
func validateKeys(role model.Role, obj map[string]json.RawMessage) error {
	var missing []string
	for _, k := range requiredKeys[role] {
		if _, ok := obj[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return &ErrSchemaViolation{Role: role, Detail: "missing required keys: " + strings.Join(missing, ", ")}
	}

	other := model.RolePET
	if role == model.RolePET {
		other = model.RoleCT
	}
	for _, k := range requiredKeys[other] {
		if _, ok := obj[k]; ok {
			return &ErrSchemaViolation{Role: role, Detail: "foreign key from other role schema: " + k}
		}
	}
	return nil
}

// decodeFields parses and validates a raw response into the role's typed
// fields, populating exactly one of the returned pointers. A response that
// is not JSON at all is a transient service hiccup and stays retryable;
// only a decoded object that breaks the role's schema is terminal.
func decodeFields(role model.Role, raw string) (*model.CTFields, *model.PETFields, error) {
	obj, err := parseObject(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s response: %w", role, err)
	}
	if err := validateKeys(role, obj); err != nil {
		return nil, nil, err
	}

	switch role {
	case model.RoleCT:
		var f model.CTFields
		if err := remarshal(obj, &f); err != nil {
			return nil, nil, &ErrSchemaViolation{Role: role, Detail: err.Error()}
		}
		return &f, nil, nil
	case model.RolePET:
		var f model.PETFields
		if err := remarshal(obj, &f); err != nil {
			return nil, nil, &ErrSchemaViolation{Role: role, Detail: err.Error()}
		}
		return nil, &f, nil
	}
	return nil, nil, fmt.Errorf("unknown role %q", role)
}

func remarshal(obj map[string]json.RawMessage, dst any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

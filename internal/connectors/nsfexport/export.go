package nsfexport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
)

// exportDocument is the on-disk JSON shape of one exported document.
type exportDocument struct {
	UNID        string             `json:"unid"`
	Form        string             `json:"form"`
	Subject     string             `json:"subject"`
	ModifiedAt  time.Time          `json:"modified_at"`
	CreatedAt   time.Time          `json:"created_at"`
	Views       []string           `json:"views"`
	Items       []exportItem       `json:"items"`
	Attachments []exportAttachment `json:"attachments"`
}

// exportItem is one named field. Values is kept as raw JSON so the typed
// decode can be driven by the declared kind.
type exportItem struct {
	Name    string            `json:"name"`
	Kind    string            `json:"kind"`
	Values  []json.RawMessage `json:"values"`
	Summary bool              `json:"summary"`
}

// exportAttachment references one binary payload.
type exportAttachment struct {
	Filename string `json:"filename"`
	ItemName string `json:"item_name"`
	Kind     string `json:"kind"`
	MIMEType string `json:"mime_type"`
}

// toRaw converts an exported document into the domain representation.
func (d *exportDocument) toRaw() (domain.RawDocument, error) {
	raw := domain.RawDocument{
		UNID:       d.UNID,
		Form:       d.Form,
		Subject:    d.Subject,
		ModifiedAt: d.ModifiedAt.UTC(),
	}
	if !d.CreatedAt.IsZero() {
		raw.CreatedAt = d.CreatedAt.UTC()
	}

	for _, item := range d.Items {
		values := make([]domain.Value, 0, len(item.Values))
		for i, rawVal := range item.Values {
			value, err := decodeExportValue(item.Kind, rawVal)
			if err != nil {
				return domain.RawDocument{}, fmt.Errorf("document %s item %q value %d: %w", d.UNID, item.Name, i, err)
			}
			values = append(values, value)
		}
		raw.Items = append(raw.Items, domain.RawItem{
			Name:    item.Name,
			Values:  values,
			Summary: item.Summary,
		})
	}

	for _, att := range d.Attachments {
		raw.Attachments = append(raw.Attachments, domain.RawAttachment{
			Filename: att.Filename,
			ItemName: att.ItemName,
			Kind:     att.Kind,
			MIMEType: att.MIMEType,
		})
	}
	return raw, nil
}

// decodeExportValue decodes one JSON value according to its declared kind.
// Attachment values never appear in item data: payloads travel through the
// attachments listing and are linked to their carrying item during the scan.
func decodeExportValue(kind string, raw json.RawMessage) (domain.Value, error) {
	switch domain.ValueKind(kind) {
	case domain.KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decoding string value: %w", err)
		}
		return domain.StringValue(s), nil
	case domain.KindNumber:
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("decoding number value: %w", err)
		}
		return domain.NumberValue(n), nil
	case domain.KindDatetime:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decoding datetime value: %w", err)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("parsing datetime value: %w", err)
		}
		return domain.DatetimeValue(t.UTC()), nil
	case domain.KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("decoding bool value: %w", err)
		}
		return domain.BoolValue(b), nil
	default:
		return nil, fmt.Errorf("unsupported value kind %q", kind)
	}
}

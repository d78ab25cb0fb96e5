package pets

import (
	"encoding/json"
	"strings"
	"time"
)

// Pet is owned by exactly one profile.
type Pet struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"owner_id"`
	Name              string    `json:"name"`
	Type              string    `json:"type"`
	Breed             string    `json:"breed,omitempty"`
	Age               *int      `json:"age,omitempty"`
	Weight            *float64  `json:"weight,omitempty"`
	Allergies         string    `json:"allergies,omitempty"`
	Medication        string    `json:"medication,omitempty"`
	VaccinationStatus string    `json:"vaccination_status,omitempty"`
	MedicalNotes      string    `json:"medical_notes,omitempty"`
	PhotoURL          string    `json:"photo_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Input is the create/update payload. Fields left nil are kept on update.
type Input struct {
	Name              *string  `json:"name,omitempty"`
	Type              *string  `json:"type,omitempty"`
	Breed             *string  `json:"breed,omitempty"`
	Age               *int     `json:"age,omitempty"`
	Weight            *float64 `json:"weight,omitempty"`
	Allergies         *string  `json:"allergies,omitempty"`
	Medication        *string  `json:"medication,omitempty"`
	VaccinationStatus *string  `json:"vaccination_status,omitempty"`
	MedicalNotes      *string  `json:"medical_notes,omitempty"`
	PhotoURL          *string  `json:"photo_url,omitempty"`
}

// UnmarshalJSON accepts the legacy "species" key. "type" wins when both are set.
func (in *Input) UnmarshalJSON(data []byte) error {
	type plain Input
	var aux struct {
		plain
		Species *string `json:"species,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*in = Input(aux.plain)
	if in.Type == nil && aux.Species != nil {
		in.Type = aux.Species
	}
	return nil
}

func (in Input) apply(p *Pet) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&p.Name, in.Name)
	set(&p.Breed, in.Breed)
	set(&p.Allergies, in.Allergies)
	set(&p.Medication, in.Medication)
	set(&p.VaccinationStatus, in.VaccinationStatus)
	set(&p.MedicalNotes, in.MedicalNotes)
	set(&p.PhotoURL, in.PhotoURL)
	if in.Type != nil {
		p.Type = strings.ToLower(strings.TrimSpace(*in.Type))
	}
	if in.Age != nil {
		age := *in.Age
		p.Age = &age
	}
	if in.Weight != nil {
		w := *in.Weight
		p.Weight = &w
	}
}

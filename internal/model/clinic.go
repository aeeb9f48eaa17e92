package model

import "github.com/google/uuid"

// Clinic is the tenant. Every template, appointment and session row is
// scoped to one clinic; cross-tenant reads are impossible by contract.
type Clinic struct {
	Base
	Name         string `db:"name" json:"name"`
	Timezone     string `db:"timezone" json:"timezone"`
	HasProAccess bool   `db:"has_pro_access" json:"has_pro_access"`
}

type CreateClinicRequest struct {
	Name     string `json:"name" binding:"required,max=200"`
	Timezone string `json:"timezone" binding:"required"`
}

type Patient struct {
	Base
	ClinicID uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Name     string    `db:"name" json:"name"`
	Guardian string    `db:"guardian" json:"guardian,omitempty"`
	Status   string    `db:"status" json:"status"`
}

type CreatePatientRequest struct {
	Name     string `json:"name" binding:"required,max=200"`
	Guardian string `json:"guardian" binding:"max=200"`
}

type Therapist struct {
	Base
	ClinicID uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Name     string    `db:"name" json:"name"`
	Email    string    `db:"email" json:"email"`
	Status   string    `db:"status" json:"status"`
}

type CreateTherapistRequest struct {
	Name  string `json:"name" binding:"required,max=200"`
	Email string `json:"email" binding:"required,email"`
}

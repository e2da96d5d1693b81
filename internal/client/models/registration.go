// Package models defines the client-side data model: birth registrations,
// queued mutations awaiting synchronization, and cache entries.
package models

import "time"

// CollectionRegistrations is the remote collection birth registrations are
// stored in.
const CollectionRegistrations = "registrations"

// RegistrationStatus is the domain lifecycle of a registration.
type RegistrationStatus string

const (
	RegistrationStatusDraft     RegistrationStatus = "draft"
	RegistrationStatusSubmitted RegistrationStatus = "submitted"
	RegistrationStatusApproved  RegistrationStatus = "approved"
	RegistrationStatusRejected  RegistrationStatus = "rejected"
)

// SyncStatus tracks whether a locally stored registration has been confirmed
// by the server.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

// Registration is a birth registration record as stored locally. The ID is a
// client-assigned UUID that the server adopts, so the local and remote records
// share one identity. RegistrationNumber is the human-readable reference:
// server-assigned (e.g. "BR-2026-00123") once confirmed, or locally generated
// with an "OFFLINE-" prefix until then.
type Registration struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	RegistrationNumber string             `json:"registration_number"`
	ChildName          string             `json:"child_name"`
	Sex                string             `json:"sex"`
	DateOfBirth        string             `json:"date_of_birth"`
	PlaceOfBirth       string             `json:"place_of_birth"`
	MotherName         string             `json:"mother_name"`
	FatherName         string             `json:"father_name"`
	Status             RegistrationStatus `json:"status"`
	SyncStatus         SyncStatus         `json:"sync_status"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// RegistrationForm carries the user-entered fields of a new or edited
// registration. Contextual fields (ids, numbers, timestamps) are filled in by
// the registration service. A blank Status means draft on create and keeps
// the current status on edit.
type RegistrationForm struct {
	ChildName    string             `json:"child_name"`
	Sex          string             `json:"sex"`
	DateOfBirth  string             `json:"date_of_birth"`
	PlaceOfBirth string             `json:"place_of_birth"`
	MotherName   string             `json:"mother_name"`
	FatherName   string             `json:"father_name"`
	Status       RegistrationStatus `json:"status,omitempty"`
}

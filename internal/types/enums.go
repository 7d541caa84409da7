package types

import "fmt"

// AppointmentKind identifies the category of a scheduled appointment.
type AppointmentKind string

const (
	KindInitialMeeting AppointmentKind = "initial_meeting"
	KindD15            AppointmentKind = "d15"
	KindD50            AppointmentKind = "d50"
	KindFollowUp       AppointmentKind = "followup"
	KindTechnicalVisit AppointmentKind = "technical_visit"
	KindCustom         AppointmentKind = "custom"
)

// ParseAppointmentKind validates a raw string read from storage or a request.
// Unknown values are rejected here, at the data boundary, so the rest of the
// code can treat AppointmentKind as a closed set.
func ParseAppointmentKind(s string) (AppointmentKind, error) {
	switch AppointmentKind(s) {
	case KindInitialMeeting, KindD15, KindD50, KindFollowUp, KindTechnicalVisit, KindCustom:
		return AppointmentKind(s), nil
	}
	return "", fmt.Errorf("unknown appointment kind %q", s)
}

// AppointmentStatus is the lifecycle state of an appointment.
// pending is the only state the sync machinery ever acts on; the other three
// are terminal for synchronization purposes.
type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCanceled    AppointmentStatus = "canceled"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

// ParseAppointmentStatus validates a raw status string at the data boundary.
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	switch AppointmentStatus(s) {
	case StatusPending, StatusCompleted, StatusCanceled, StatusRescheduled:
		return AppointmentStatus(s), nil
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

// InteractionKind identifies the category of a logged client contact.
// The set overlaps AppointmentKind: logging an interaction of a mapped kind
// completes the oldest pending appointment of the corresponding kind.
type InteractionKind string

const (
	InteractionInitialMeeting InteractionKind = "initial_meeting"
	InteractionD15            InteractionKind = "d15"
	InteractionD50            InteractionKind = "d50"
	InteractionFollowUp       InteractionKind = "followup"
	InteractionSupport        InteractionKind = "support"
)

// ParseInteractionKind validates a raw interaction kind at the data boundary.
func ParseInteractionKind(s string) (InteractionKind, error) {
	switch InteractionKind(s) {
	case InteractionInitialMeeting, InteractionD15, InteractionD50, InteractionFollowUp, InteractionSupport:
		return InteractionKind(s), nil
	}
	return "", fmt.Errorf("unknown interaction kind %q", s)
}

// OnboardingStatus tracks a client's progress through onboarding.
type OnboardingStatus string

const (
	OnboardingStarted       OnboardingStatus = "started"
	OnboardingMeetingBooked OnboardingStatus = "meeting_booked"
	OnboardingDocumentation OnboardingStatus = "documentation"
	OnboardingReview        OnboardingStatus = "review"
	OnboardingDone          OnboardingStatus = "done"
)

// ParseOnboardingStatus validates a raw onboarding status at the data
// boundary.
func ParseOnboardingStatus(s string) (OnboardingStatus, error) {
	switch OnboardingStatus(s) {
	case OnboardingStarted, OnboardingMeetingBooked, OnboardingDocumentation, OnboardingReview, OnboardingDone:
		return OnboardingStatus(s), nil
	}
	return "", fmt.Errorf("unknown onboarding status %q", s)
}

// RelationshipStatus tracks the commercial relationship with a client.
type RelationshipStatus string

const (
	RelationshipActive   RelationshipStatus = "active"
	RelationshipInactive RelationshipStatus = "inactive"
	RelationshipPending  RelationshipStatus = "pending"
	RelationshipClosed   RelationshipStatus = "closed"
)

// ParseRelationshipStatus validates a raw relationship status at the data
// boundary.
func ParseRelationshipStatus(s string) (RelationshipStatus, error) {
	switch RelationshipStatus(s) {
	case RelationshipActive, RelationshipInactive, RelationshipPending, RelationshipClosed:
		return RelationshipStatus(s), nil
	}
	return "", fmt.Errorf("unknown relationship status %q", s)
}

// InteractionChannel is the medium through which a contact happened.
type InteractionChannel string

const (
	ChannelInPerson  InteractionChannel = "in_person"
	ChannelVideoCall InteractionChannel = "video_call"
	ChannelPhone     InteractionChannel = "phone"
	ChannelEmail     InteractionChannel = "email"
	ChannelWhatsApp  InteractionChannel = "whatsapp"
)

// ParseInteractionChannel validates a raw interaction channel at the data
// boundary.
func ParseInteractionChannel(s string) (InteractionChannel, error) {
	switch InteractionChannel(s) {
	case ChannelInPerson, ChannelVideoCall, ChannelPhone, ChannelEmail, ChannelWhatsApp:
		return InteractionChannel(s), nil
	}
	return "", fmt.Errorf("unknown interaction channel %q", s)
}

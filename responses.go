package trust

// API response shapes for emergency access resources. Field casing follows
// the upstream client contract, so these do not reuse the model JSON tags.

type EmergencyAccessResponse struct {
	ID           string `json:"Id"`
	Status       int    `json:"Status"`
	Type         int    `json:"Type"`
	WaitTimeDays int    `json:"WaitTimeDays"`
	Object       string `json:"Object"`
}

type EmergencyAccessGrantorResponse struct {
	EmergencyAccessResponse
	GrantorID string `json:"GrantorId"`
	Email     string `json:"Email"`
	Name      string `json:"Name"`
}

type EmergencyAccessGranteeResponse struct {
	EmergencyAccessResponse
	GranteeID string `json:"GranteeId"`
	Email     string `json:"Email"`
	Name      string `json:"Name"`
}

func newBaseResponse(record *EmergencyAccess, object string) EmergencyAccessResponse {
	return EmergencyAccessResponse{
		ID:           record.ID.String(),
		Status:       int(record.Status),
		Type:         int(record.Type),
		WaitTimeDays: record.WaitTimeDays,
		Object:       object,
	}
}

// NewEmergencyAccessResponse renders the bare resource.
func NewEmergencyAccessResponse(record *EmergencyAccess) EmergencyAccessResponse {
	return newBaseResponse(record, "emergencyAccess")
}

// NewEmergencyAccessGrantorResponse renders the grantee's view of a record,
// detailing the grantor.
func NewEmergencyAccessGrantorResponse(record *EmergencyAccess, grantor *User) EmergencyAccessGrantorResponse {
	resp := EmergencyAccessGrantorResponse{
		EmergencyAccessResponse: newBaseResponse(record, "emergencyAccessGrantorDetails"),
	}
	if grantor != nil {
		resp.GrantorID = grantor.ID.String()
		resp.Email = grantor.Email
		resp.Name = grantor.Name
	}
	return resp
}

// NewEmergencyAccessGranteeResponse renders the grantor's view of a record,
// detailing the grantee. Before acceptance only the invited email is known;
// the identifier and name stay empty strings.
func NewEmergencyAccessGranteeResponse(record *EmergencyAccess, grantee *User) EmergencyAccessGranteeResponse {
	resp := EmergencyAccessGranteeResponse{
		EmergencyAccessResponse: newBaseResponse(record, "emergencyAccessGranteeDetails"),
	}
	switch {
	case grantee != nil:
		resp.GranteeID = grantee.ID.String()
		resp.Email = grantee.Email
		resp.Name = grantee.Name
	case record.Email != nil:
		resp.Email = *record.Email
	}
	return resp
}

package entities

// EndpointStatus values.
const (
	EndpointStatusActive = "active"
	EndpointStatusOff    = "off"
)

// Organisation is the organisation document.
type Organisation struct {
	ID                  string     `dynamodbav:"id" json:"id"`
	Field               string     `dynamodbav:"field" json:"field"`
	IdentifierOldDoSUID *string    `dynamodbav:"identifier_oldDoS_uid" json:"identifier_oldDoS_uid"`
	IdentifierODSCode   *string    `dynamodbav:"identifier_ODS_ODSCode" json:"identifier_ODS_ODSCode"`
	Active              bool       `dynamodbav:"active" json:"active"`
	Name                string     `dynamodbav:"name" json:"name"`
	Telecom             []string   `dynamodbav:"telecom" json:"telecom"`
	Type                *string    `dynamodbav:"type" json:"type"`
	Endpoints           []Endpoint `dynamodbav:"endpoints" json:"endpoints"`
	Audit
}

// Endpoint is an electronic address attached to an organisation.
type Endpoint struct {
	ID                    string  `dynamodbav:"id" json:"id"`
	IdentifierOldDoSID    int     `dynamodbav:"identifier_oldDoS_id" json:"identifier_oldDoS_id"`
	Status                string  `dynamodbav:"status" json:"status"`
	ConnectionType        *string `dynamodbav:"connectionType" json:"connectionType"`
	Name                  *string `dynamodbav:"name" json:"name"`
	BusinessScenario      *string `dynamodbav:"businessScenario" json:"businessScenario"`
	PayloadType           *string `dynamodbav:"payloadType" json:"payloadType"`
	PayloadMimeType       *string `dynamodbav:"payloadMimeType" json:"payloadMimeType"`
	Address               *string `dynamodbav:"address" json:"address"`
	ManagedByOrganisation string  `dynamodbav:"managedByOrganisation" json:"managedByOrganisation"`
	Service               *string `dynamodbav:"service" json:"service"`
	Order                 int     `dynamodbav:"order" json:"order"`
	IsCompressionEnabled  bool    `dynamodbav:"isCompressionEnabled" json:"isCompressionEnabled"`
	Comment               *string `dynamodbav:"comment" json:"comment"`
	Audit
}

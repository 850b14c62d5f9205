package entities

// Location is the physical site of an organisation.
type Location struct {
	ID                   string       `dynamodbav:"id" json:"id"`
	Field                string       `dynamodbav:"field" json:"field"`
	IdentifierOldDoSUID  *string      `dynamodbav:"identifier_oldDoS_uid" json:"identifier_oldDoS_uid"`
	Active               bool         `dynamodbav:"active" json:"active"`
	ManagingOrganisation string       `dynamodbav:"managingOrganisation" json:"managingOrganisation"`
	Address              *Address     `dynamodbav:"address" json:"address"`
	Name                 *string      `dynamodbav:"name" json:"name"`
	PositionGCS          *PositionGCS `dynamodbav:"positionGCS" json:"positionGCS"`
	PrimaryAddress       bool         `dynamodbav:"primaryAddress" json:"primaryAddress"`
	PartOf               *string      `dynamodbav:"partOf" json:"partOf"`
	Audit
}

// Address is a formatted postal address.
type Address struct {
	Line1    *string `dynamodbav:"line1" json:"line1"`
	Line2    *string `dynamodbav:"line2" json:"line2"`
	County   *string `dynamodbav:"county" json:"county"`
	Town     *string `dynamodbav:"town" json:"town"`
	Postcode *string `dynamodbav:"postcode" json:"postcode"`
}

// PositionGCS is a WGS84 coordinate pair.
type PositionGCS struct {
	Latitude  Decimal `dynamodbav:"latitude" json:"latitude"`
	Longitude Decimal `dynamodbav:"longitude" json:"longitude"`
}

package mapping

// Bitrix deal field keys.
const (
	FieldTitle      = "TITLE"
	FieldCategory   = "CATEGORY_ID"
	FieldAssignedBy = "ASSIGNED_BY_ID"
	FieldSource     = "SOURCE_ID"
	FieldComments   = "COMMENTS"

	FieldContactName  = "UF_CRM_1701770331658"
	FieldEmail        = "UF_CRM_65732038DAD70"
	FieldPhone        = "UF_CRM_PHONE_WORK"
	FieldWhatsAppCell = "UF_CRM_62A5B8743F62A"
	FieldBayutLink    = "UF_CRM_6447D614AB1DF"
	FieldReference    = "UF_CRM_6447D61518434"
	FieldDubizzleLink = "UF_CRM_660FC42E05A3E"

	FieldModeOfEnquiry     = "ufCrm43_1738827952373"
	FieldPropertyType      = "ufCrm43_1738828386601"
	FieldCollectionSource  = "ufCrm43_1738828095478"
	FieldPropertyReference = "ufCrm43_1738828416520"
	FieldTimestamp         = "ufCrm43_1738828518085"
	FieldCallStatus        = "ufCrm43_1738828617892"
)

const (
	noReference = "No reference"
	unknown     = "Unknown"
)

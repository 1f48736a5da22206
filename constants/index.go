package constants

const (
	NOT_FOUND_RECORDS          = "NOT_FOUND_RECORDS"
	NOT_ADMIN                  = "NOT_ADMIN"
	NOT_BENEFICIARY            = "NOT_BENEFICIARY"
	NOT_OFFERER                = "NOT_OFFERER"
	ERROR_INPUT                = "ERROR_INPUT"
	ERROR_PARSE_DATA_TO_LOCALS = "ERROR_PARSE_DATA_TO_LOCALS"
	DATA_INPUT_IS_NOT_NUMBER   = "DATA_INPUT_IS_NOT_NUMBER"
	CAN_NOT_HASH_PASSWORD      = "CAN_NOT_HASH_PASSWORD"
	ERROR_INTERNAL_ERROR       = "ERROR_INTERNAL_ERROR"
	MISSING_LOGIN_INPUT        = "MISSING_LOGIN_INPUT"
	INVALID_EMAIL              = "INVALID_EMAIL"
	INVALID_PASSWORD           = "INVALID_PASSWORD"
	ACCOUNT_NOT_ACTIVE         = "ACCOUNT_NOT_ACTIVE"
)

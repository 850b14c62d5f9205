package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Reference is a fixed log event with a stable code, level and message.
type Reference struct {
	Code    string
	Level   zapcore.Level
	Message string
}

// Data migration pipeline.
var (
	DMETL000 = Reference{"DM_ETL_000", zapcore.InfoLevel, "Starting data migration pipeline"}
	DMETL001 = Reference{"DM_ETL_001", zapcore.DebugLevel, "Starting to process DMS event"}
	DMETL002 = Reference{"DM_ETL_002", zapcore.DebugLevel, "Transformer is not valid for record"}
	DMETL003 = Reference{"DM_ETL_003", zapcore.InfoLevel, "Transformer selected for record"}
	DMETL004 = Reference{"DM_ETL_004", zapcore.InfoLevel, "Record was not migrated"}
	DMETL005 = Reference{"DM_ETL_005", zapcore.InfoLevel, "Record skipped due to condition"}
	DMETL006 = Reference{"DM_ETL_006", zapcore.DebugLevel, "Record successfully transformed into future data model"}
	DMETL007 = Reference{"DM_ETL_007", zapcore.InfoLevel, "Record successfully migrated"}
	DMETL008 = Reference{"DM_ETL_008", zapcore.ErrorLevel, "Error processing record"}
	DMETL009 = Reference{"DM_ETL_009", zapcore.ErrorLevel, "Error parsing event"}
	DMETL010 = Reference{"DM_ETL_010", zapcore.WarnLevel, "Unsupported event method"}
	DMETL011 = Reference{"DM_ETL_011", zapcore.WarnLevel, "Table not supported for event method"}
	DMETL012 = Reference{"DM_ETL_012", zapcore.WarnLevel, "No symptom discriminators found for symptom group"}
	DMETL013 = Reference{"DM_ETL_013", zapcore.WarnLevel, "Record has validation issues"}
	DMETL014 = Reference{"DM_ETL_014", zapcore.WarnLevel, "Record failed validation and was not migrated"}
	DMETL015 = Reference{"DM_ETL_015", zapcore.InfoLevel, "Formatted address for organisation"}
	DMETL016 = Reference{"DM_ETL_016", zapcore.WarnLevel, "No address found for organisation, setting address to nil"}
	DMETL017 = Reference{"DM_ETL_017", zapcore.InfoLevel, "No age eligibility criteria created as no age range found"}
	DMETL018 = Reference{"DM_ETL_018", zapcore.WarnLevel, "Disposition not found in metadata, skipping disposition"}
	DMETL019 = Reference{"DM_ETL_019", zapcore.InfoLevel, "State record found for record"}
	DMETL020 = Reference{"DM_ETL_020", zapcore.InfoLevel, "No state record found for record, proceeding with creating one"}
	DMETL021 = Reference{"DM_ETL_021", zapcore.InfoLevel, "Successfully wrote items transactionally"}
	DMETL022 = Reference{"DM_ETL_022", zapcore.WarnLevel, "Transaction cancelled due to conditional check failure"}
	DMETL023 = Reference{"DM_ETL_023", zapcore.DebugLevel, "No organisation to insert"}
	DMETL024 = Reference{"DM_ETL_024", zapcore.InfoLevel, "Adding organisation insert"}
	DMETL025 = Reference{"DM_ETL_025", zapcore.DebugLevel, "No location to insert"}
	DMETL026 = Reference{"DM_ETL_026", zapcore.InfoLevel, "Adding location insert"}
	DMETL027 = Reference{"DM_ETL_027", zapcore.DebugLevel, "No healthcare service to insert"}
	DMETL028 = Reference{"DM_ETL_028", zapcore.InfoLevel, "Adding healthcare service insert"}
	DMETL029 = Reference{"DM_ETL_029", zapcore.InfoLevel, "No changes detected for organisation"}
	DMETL030 = Reference{"DM_ETL_030", zapcore.InfoLevel, "Changes detected for organisation, adding update"}
	DMETL031 = Reference{"DM_ETL_031", zapcore.InfoLevel, "No changes detected for location"}
	DMETL032 = Reference{"DM_ETL_032", zapcore.InfoLevel, "Changes detected for location, adding update"}
	DMETL033 = Reference{"DM_ETL_033", zapcore.InfoLevel, "No changes detected for healthcare service"}
	DMETL034 = Reference{"DM_ETL_034", zapcore.InfoLevel, "Changes detected for healthcare service, adding update"}
	DMETL035 = Reference{"DM_ETL_035", zapcore.InfoLevel, "Adding state record insert"}
	DMETL036 = Reference{"DM_ETL_036", zapcore.InfoLevel, "Adding state record update"}
	DMETL037 = Reference{"DM_ETL_037", zapcore.InfoLevel, "No items to write, state record unchanged"}
	DMETL038 = Reference{"DM_ETL_038", zapcore.ErrorLevel, "Transaction failed"}
	DMETL039 = Reference{"DM_ETL_039", zapcore.WarnLevel, "Failed to publish migration event"}
	DMETL999 = Reference{"DM_ETL_999", zapcore.InfoLevel, "Data migration pipeline completed"}
)

// Source record validation.
var (
	SMVAL001 = Reference{"SM_VAL_001", zapcore.InfoLevel, "Starting validation of service data"}
	SMVAL003 = Reference{"SM_VAL_003", zapcore.InfoLevel, "Some fields were changed before transformation"}
)

// SQS application.
var (
	SMAPP003  = Reference{"SM_APP_003", zapcore.InfoLevel, "Received SQS event batch"}
	SMAPP004  = Reference{"SM_APP_004", zapcore.InfoLevel, "Finished processing SQS event batch"}
	SMAPP005  = Reference{"SM_APP_005", zapcore.WarnLevel, "Batch contained records to retry"}
	SMAPP006  = Reference{"SM_APP_006", zapcore.DebugLevel, "Processing SQS record"}
	SMAPP007  = Reference{"SM_APP_007", zapcore.DebugLevel, "Finished processing SQS record"}
	SMAPP008A = Reference{"SM_APP_008a", zapcore.WarnLevel, "Record failed and will be retried"}
	SMAPP008B = Reference{"SM_APP_008b", zapcore.InfoLevel, "Record failed and will not be retried"}
	SMAPP009  = Reference{"SM_APP_009", zapcore.ErrorLevel, "Unexpected error processing record"}
	SMAPP012  = Reference{"SM_APP_012", zapcore.WarnLevel, "Failed to publish batch metrics"}
)

// Version history stream.
var (
	VHStream001 = Reference{"VH_STREAM_001", zapcore.InfoLevel, "Processing stream records"}
	VHStream002 = Reference{"VH_STREAM_002", zapcore.DebugLevel, "Skipping record without both images"}
	VHStream003 = Reference{"VH_STREAM_003", zapcore.DebugLevel, "No business changes detected"}
	VHStream004 = Reference{"VH_STREAM_004", zapcore.InfoLevel, "Version history record written"}
	VHStream005 = Reference{"VH_STREAM_005", zapcore.WarnLevel, "Some stream records failed"}
	VHStream006 = Reference{"VH_STREAM_006", zapcore.InfoLevel, "Finished processing stream records"}
)

// FieldReference is the field that carries the reference code.
const FieldReference = "log_reference"

// Field tags a log entry with the reference code.
func (r Reference) Field() zap.Field {
	return zap.String(FieldReference, r.Code)
}

// Log writes ref to logger with the given fields.
func Log(logger *zap.Logger, ref Reference, fields ...zap.Field) {
	if ce := logger.Check(ref.Level, ref.Message); ce != nil {
		ce.Write(append([]zap.Field{ref.Field()}, fields...)...)
	}
}

package resolve

import "fmt"

// extractionPrompt instructs the model to enumerate every referenced object,
// one per line, in the fixed <KIND>:<fully.qualified.name>:<role> format the
// parser expects.
const extractionPromptTemplate = `You are a helpful assistant that extracts object names from warehouse DDL and infers the role of tables.
Given the following procedure DDL, identify all tables, views, and sub-procedures referenced.

For each object, determine its role based on how it is used in the procedure:
- For TABLES: infer if it is primarily read from ('source'), written to ('target'), or used for reference/lookups ('master'). Analyze INSERT/UPDATE/DELETE/MERGE statements for 'target' tables, and SELECT/JOIN clauses for 'source' or 'master' tables. If unsure, default to 'master'.
- For PROCEDURES and VIEWS: use 'N/A' as the role.

Return the names, one per line, in the format:
<object_type>:<full_object_name>:<role>

Where:
- <object_type> is 'TABLE', 'PROCEDURE', or 'VIEW'.
- <full_object_name> is the fully qualified name (e.g. database.schema.table). For procedures, do NOT include arguments or parentheses.
- <role> is 'source', 'target', 'master', or 'N/A' as determined above.

Example output lines:
TABLE:MY_DB.MY_SCHEMA.CUSTOMERS:master
TABLE:MY_DB.MY_SCHEMA.SALES_RAW:source
TABLE:MY_DB.MY_SCHEMA.SALES_AGG:target
PROCEDURE:MY_DB.MY_SCHEMA.SUB_PROC:N/A
VIEW:MY_DB.MY_SCHEMA.CUSTOMER_VIEW:N/A

Naming conventions, pay close attention:
1. Streams are named with the prefix "str_", followed by the source table name, and end with a number (e.g. "_01", "_02").
2. Temporary tables are named with the prefix "tmp_", followed by the stream name (tmp_str_source_table_name_0).
3. The correct table names must not contain the prefixes "str_" or "tmp_". They represent the actual source and target tables.
4. Every object that starts with str_ or tmp_ is not a table.

Procedure DDL:
` + "```%s```" + `

Return ONLY the list in the specified format, one entry per line.`

func extractionPrompt(ddl string) string {
	return fmt.Sprintf(extractionPromptTemplate, ddl)
}

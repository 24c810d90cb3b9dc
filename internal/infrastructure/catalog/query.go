package catalog

// UncommentedObjectsQuery lists regular tables without a table comment and
// their user columns without a column comment. obj_type is "TABLE" or
// "COLUMN: <name>".
const UncommentedObjectsQuery = `
SELECT
    c.oid AS table_oid,
    n.nspname AS schema_name,
    c.relname AS table_name,
    pg_catalog.pg_get_userbyid(c.relowner) AS owner,
    'TABLE' AS obj_type
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE c.relkind = 'r'
  AND obj_description(c.oid, 'pg_class') IS NULL
UNION ALL
SELECT
    c.oid AS table_oid,
    n.nspname AS schema_name,
    c.relname AS table_name,
    pg_catalog.pg_get_userbyid(c.relowner) AS owner,
    'COLUMN: ' || a.attname AS obj_type
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
JOIN pg_attribute a ON a.attrelid = c.oid
WHERE c.relkind = 'r'
  AND a.attnum > 0
  AND NOT a.attisdropped
  AND col_description(c.oid, a.attnum) IS NULL
ORDER BY schema_name, table_name, obj_type
`

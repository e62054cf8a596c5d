package catalog

// Catalog-level queries, run against the node schema.
const (
	domainsSQL = `SELECT guid, name FROM aip_node.domain ORDER BY guid ASC`

	applicationsSQL = `SELECT a.name, b.schema_prefix, a.domain_guid
FROM aip_node.application a
JOIN aip_node.connection_profile b ON a.connection_profile_guid = b.guid
WHERE a.domain_guid = $1 OR a.domain_guid IS NULL`

	// applicationsNoDomainSQL lists applications when the catalog has no domains.
	applicationsNoDomainSQL = `SELECT a.name, b.schema_prefix, a.domain_guid
FROM aip_node.application a
JOIN aip_node.connection_profile b ON a.connection_profile_guid = b.guid
WHERE a.domain_guid IS NULL`
)

// Per-application metric queries.
const (
	locSQL = `SELECT DISTINCT ON (app.name) ss.lines_of_code
FROM aip_node.application app
JOIN aip_node.snapshot ss ON ss.application_guid = app.guid
WHERE app.domain_guid = $1 AND app.name = $2`

	locNullDomainSQL = `SELECT DISTINCT ON (app.name) ss.lines_of_code
FROM aip_node.application app
JOIN aip_node.snapshot ss ON ss.application_guid = app.guid
WHERE app.domain_guid IS NULL AND app.name = $1`

	locPerTechSQL = `SELECT DISTINCT dos.object_name AS technology, dmr.metric_num_value AS loc
FROM dss_metric_results dmr
JOIN dss_objects dos ON dmr.object_id = dos.object_id
WHERE dmr.object_id IN (
    SELECT object_id FROM dss_objects
    WHERE object_type_id IN (SELECT object_type_id FROM dss_object_types WHERE object_group = 2))
  AND snapshot_id = (SELECT snapshot_id FROM adg_delta_snapshots WHERE latest = 1)
  AND metric_id = 10151`

	extensionCountSQL = `SELECT COUNT(*) AS total_extensions
FROM sys_package_version
WHERE package_name LIKE '/%'`

	analyzedFilesSQL = `SELECT COUNT(*) AS total_files_analyzed FROM dss_code_sources`

	dlmsSQL = `SELECT COUNT(*) AS dlm_count FROM acc WHERE prop = 1`

	// criticalThresholdSQL returns (metric_id, metric_name, current).
	criticalThresholdSQL = `SELECT dmt.metric_id, dmt.metric_name, dmr.metric_num_value AS current
FROM dss_metric_results dmr
JOIN dss_metric_types dmt ON dmr.metric_id = dmt.metric_id
JOIN dss_objects o ON dmr.object_id = o.object_id
WHERE o.object_type_id = -102
  AND dmr.snapshot_id = (SELECT MAX(snapshot_id) FROM dss_snapshots)
  AND dmr.metric_id IN (67011)
  AND dmr.metric_value_index IN (0, 1)`

	// criticalDeltaSQL returns (metric_id, metric_name, previous, current).
	criticalDeltaSQL = `SELECT dmt.metric_id, dmt.metric_name, prev.metric_num_value AS previous, cur.metric_num_value AS current
FROM dss_metric_results cur
JOIN dss_metric_types dmt ON cur.metric_id = dmt.metric_id
JOIN dss_objects o ON cur.object_id = o.object_id
LEFT JOIN dss_metric_results prev
  ON prev.metric_id = cur.metric_id
 AND prev.object_id = cur.object_id
 AND prev.metric_value_index = cur.metric_value_index
 AND prev.snapshot_id = (
     SELECT MAX(snapshot_id) FROM dss_snapshots
     WHERE snapshot_id < (SELECT MAX(snapshot_id) FROM dss_snapshots))
WHERE o.object_type_id = -102
  AND cur.snapshot_id = (SELECT MAX(snapshot_id) FROM dss_snapshots)
  AND cur.metric_id IN (67011)
  AND cur.metric_value_index IN (0, 1)`

	missingCodeDBSQL = `SELECT COUNT(*) FROM cdt_objects WHERE object_type_str LIKE 'Missing%'`

	missingCodeSQL = `SELECT COUNT(*) FROM cdt_objects WHERE object_fullname LIKE '%Unknown%'`

	customizedJobsSQL = `SELECT COUNT(*) FROM cms_objectlinks WHERE symbol = 'afterTools'`
)

// DomainsSQL lists every domain ordered by guid.
func DomainsSQL() string { return domainsSQL }

// ApplicationsSQL lists a domain's applications plus all domain-less ones.
// It takes the domain guid as $1.
func ApplicationsSQL() string { return applicationsSQL }

// ApplicationsNoDomainSQL lists domain-less applications only.
func ApplicationsNoDomainSQL() string { return applicationsNoDomainSQL }

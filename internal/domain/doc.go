// Package domain models Pacific Flyway goose mark-resight survey data.
//
// # Data Source
//
// Surveys are collected in the field on Survey123 forms and land in an ArcGIS
// Online feature service as three layers: survey events (one row per survey
// effort), observation points (one or more per event, back-referenced by the
// parent event's GlobalID), and incidental band records for non-goose species.
// All timestamps arrive as naive UTC wall-clock values; the export pipeline
// localizes them to Pacific time before filtering and formatting.
//
// # Count Categories
//
// Each observation point carries 17 per-category goose counts, one column per
// category, named {ShortName}Count (e.g. DuskyCount). The categories cover the
// Canada/cackling goose subspecies wintering in the lower Columbia River and
// Willamette Valley plus the other geese routinely seen on the same units.
// "Wusky" is the western x dusky intergrade; hybrids and domestics carry no
// ITIS serial number, which exports as an empty field rather than an error.
//
// # Collars
//
// Marked geese wear coded neck collars, recorded as free text in up to 30
// collar slots per observation point. Observer-entered codes are uppercased
// before export so "xc44" and "XC44" collapse to one individual.
//
// # Sites
//
// Site names come from a fixed pick list of refuge and wildlife-area units in
// Washington and Oregon. A subset of sites surveys from fixed blinds with
// prepopulated point coordinates; for those, the prepopulated coordinate wins
// over the device-measured one whenever it is present.
package domain

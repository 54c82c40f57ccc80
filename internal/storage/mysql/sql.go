package mysql

// LAST_INSERT_ID(id) makes the duplicate path report the existing row's
// id, so one round trip resolves or creates the hotel.
const upsertHotelSQL = `
INSERT INTO hotels (code, nom)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE
  nom = COALESCE(VALUES(nom), hotels.nom),
  id  = LAST_INSERT_ID(id)
`

const openRunSQL = `
INSERT INTO import_runs (run_uid, template, source_file, status, started_at)
VALUES (?, ?, ?, ?, ?)
`

// The status guard keeps the terminal transition single-shot.
const closeRunSQL = `
UPDATE import_runs
SET status = ?, finished_at = ?, error_message = ?, metadata = ?
WHERE id = ? AND status = 'running'
`

const upsertCompetitorsPrefix = "INSERT INTO concurrents (hotel_id, source, nom)\nVALUES "

// Known labels stay untouched; the update is a deliberate no-op.
const upsertCompetitorsOnDup = " ON DUPLICATE KEY UPDATE nom = concurrents.nom"

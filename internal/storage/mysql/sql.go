package mysql

const upsertReviewSQL = `
INSERT INTO playstore_reviews
  (review_id, user_name, score, thumbs_up_count, content, reply_content, app_version,
   criteria, reviewed_at, replied_at, lang, country, app_id, synced_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  user_name       = VALUES(user_name),
  score           = VALUES(score),
  thumbs_up_count = VALUES(thumbs_up_count),
  content         = VALUES(content),
  reply_content   = VALUES(reply_content),
  app_version     = VALUES(app_version),
  criteria        = VALUES(criteria),
  reviewed_at     = VALUES(reviewed_at),
  replied_at      = VALUES(replied_at),
  lang            = VALUES(lang),
  country         = VALUES(country),
  app_id          = VALUES(app_id),
  synced_at       = VALUES(synced_at)
`

const reviewColumns = `review_id, user_name, score, thumbs_up_count, content, reply_content, app_version,
  criteria, reviewed_at, replied_at, lang, country, app_id, synced_at`

// Newest first; served by idx_reviews_locale (app_id, lang, country, reviewed_at).
const listReviewsSQL = `
SELECT ` + reviewColumns + `
FROM playstore_reviews
WHERE app_id = ? AND lang = ? AND country = ?
ORDER BY reviewed_at DESC, review_id DESC
LIMIT ?`

const sourceRowsSQL = `SELECT ` + reviewColumns + ` FROM playstore_reviews`

// -----------------------------------------------------------------------------
// SYNC STATE / HISTORY
// -----------------------------------------------------------------------------

// payload is TEXT, not JSON: MySQL would normalise JSON documents and foreign
// entries must come back byte for byte.
const upsertStateSQL = `
INSERT INTO sync_state (state_key, payload)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE
  payload    = VALUES(payload),
  updated_at = CURRENT_TIMESTAMP(6)
`

const insertRunSQL = `
INSERT INTO sync_runs
  (id, state_key, effective_sort, started_at, finished_at, fetched, processed, errors, status, error)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const listRunsSQL = `
SELECT id, state_key, effective_sort, started_at, finished_at, fetched, processed, errors, status, error
FROM sync_runs
ORDER BY started_at DESC, id DESC
LIMIT ?`

// -----------------------------------------------------------------------------
// ENRICHMENT
// -----------------------------------------------------------------------------

const enrichedTable = "reviews_enriched"

const createEnrichedSQL = `
CREATE TABLE IF NOT EXISTS reviews_enriched (
  review_id          VARCHAR(191) NOT NULL PRIMARY KEY,
  app_id             VARCHAR(191) NOT NULL,
  country            VARCHAR(8)   NOT NULL,
  lang               VARCHAR(8)   NOT NULL,
  app_version        VARCHAR(64)  NULL,
  user_name          VARCHAR(255) NULL,
  content            TEXT         NULL,
  thumbs_up_count    INT          NULL,
  star_score         DOUBLE       NULL,
  reviewed_ts        DATETIME(6)  NULL,
  replied_ts         DATETIME(6)  NULL,
  is_replied         TINYINT(1)   NOT NULL DEFAULT 0,
  topic_class        VARCHAR(32)  NULL,
  sentiment_score    DOUBLE       NULL,
  satisfaction_text  VARCHAR(255) NULL,
  sentiment_bucket   VARCHAR(16)  NOT NULL,
  satisfaction_label VARCHAR(16)  NOT NULL,
  reply_latency_min  BIGINT       NULL,
  source_synced_at   DATETIME(6)  NOT NULL,
  KEY idx_enriched_synced (source_synced_at),
  KEY idx_enriched_locale (app_id, lang, country, reviewed_ts)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
`

const enrichedColumns = `(review_id, app_id, country, lang, app_version, user_name, content, thumbs_up_count,
  star_score, reviewed_ts, replied_ts, is_replied, topic_class, sentiment_score, satisfaction_text,
  sentiment_bucket, satisfaction_label, reply_latency_min, source_synced_at)`

const enrichedPlaceholders = "(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)"

const enrichedOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  app_id             = VALUES(app_id),\n" +
	"  country            = VALUES(country),\n" +
	"  lang               = VALUES(lang),\n" +
	"  app_version        = VALUES(app_version),\n" +
	"  user_name          = VALUES(user_name),\n" +
	"  content            = VALUES(content),\n" +
	"  thumbs_up_count    = VALUES(thumbs_up_count),\n" +
	"  star_score         = VALUES(star_score),\n" +
	"  reviewed_ts        = VALUES(reviewed_ts),\n" +
	"  replied_ts         = VALUES(replied_ts),\n" +
	"  is_replied         = VALUES(is_replied),\n" +
	"  topic_class        = VALUES(topic_class),\n" +
	"  sentiment_score    = VALUES(sentiment_score),\n" +
	"  satisfaction_text  = VALUES(satisfaction_text),\n" +
	"  sentiment_bucket   = VALUES(sentiment_bucket),\n" +
	"  satisfaction_label = VALUES(satisfaction_label),\n" +
	"  reply_latency_min  = VALUES(reply_latency_min),\n" +
	"  source_synced_at   = VALUES(source_synced_at)\n"

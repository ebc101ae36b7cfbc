package postgres

const queryInsertSubmission = `
INSERT INTO submissions (id, fields, status, created_at, updated_at)
VALUES ($1, $2, 'pending', $3, $3)
ON CONFLICT (id) DO NOTHING
`

const queryInsertAttempt = `
INSERT INTO attempts (id, submission_id, strategy, position, error, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// A delivered submission is never moved back to failed.
const queryUpdateSubmissionStatus = `
UPDATE submissions
SET status = $1, method = $2, error = $3, runs = runs + 1, updated_at = $4
WHERE id = $5
  AND status <> 'delivered'
`

const queryGetSubmissionStatus = `
SELECT status FROM submissions WHERE id = $1
`

const queryGetSubmission = `
SELECT id, fields, status, method, error, runs, created_at, updated_at
FROM submissions
WHERE id = $1
`

const queryGetFailedSubmissions = `
SELECT id, fields, status, method, error, runs, created_at, updated_at
FROM submissions
WHERE status IN ('failed', 'pending')
  AND updated_at < $1
  AND runs < $2
ORDER BY updated_at ASC
LIMIT $3
`

const queryListAttempts = `
SELECT id, submission_id, strategy, position, error, started_at, finished_at
FROM attempts
WHERE submission_id = $1
ORDER BY started_at ASC, position ASC
`

package sqlinline

// QInsertArtifact inserts nothing when the index is already produced, lies
// outside 1..target_count, or the job is already terminal.
const QInsertArtifact = `--sql 9f30bb08-2b68-4174-bf21-3826876389d8
insert into artifacts(
  id,
  job_id,
  item_index,
  title,
  content,
  structured,
  provider,
  prompt_tokens,
  completion_tokens,
  total_tokens,
  retry_count,
  created_at
)
select $1::uuid, j.id, $3::int, $4::text, $5::text, $6::boolean, $7::text, $8::int, $9::int, $10::int, $11::int, now()
from generation_jobs j
where j.id = $2::uuid
  and j.status in ('PENDING', 'IN_PROGRESS')
  and $3::int between 1 and j.target_count
for share of j
on conflict (job_id, item_index) do nothing
returning created_at;
`

const QCountArtifactsByJob = `--sql a80b90f7-1acf-49a7-99b9-42fae7831079
select count(*)::int
from artifacts
where job_id = $1::uuid;
`

const QListArtifactIndexes = `--sql 0d57433e-9739-4f53-bc1c-c424a40e8ad5
select item_index
from artifacts
where job_id = $1::uuid
order by item_index asc;
`

const QListArtifactTitles = `--sql 1432497f-1dd4-4c48-a65b-a1b831e99c5b
select title
from artifacts
where job_id = $1::uuid
  and title <> ''
order by item_index asc;
`

const QListArtifactsByJob = `--sql 5b9bcd9f-ed51-4161-a8be-ba01813306a0
select id, job_id, item_index, title, content, structured, provider,
       prompt_tokens, completion_tokens, total_tokens, retry_count, created_at
from artifacts
where job_id = $1::uuid
order by item_index asc;
`

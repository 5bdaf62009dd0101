package sqlinline

const QInsertJob = `--sql 9b19ff41-f5a9-4645-ad16-61fad7ad74d7
insert into generation_jobs(
  id,
  user_id,
  status,
  target_count,
  completed_count,
  cost_per_item,
  params,
  refund_settled,
  created_at,
  updated_at
)
values ($1::uuid, $2::uuid, 'PENDING', $3::int, 0, $4::bigint, coalesce($5::jsonb, '{}'::jsonb), false, now(), now())
returning created_at, updated_at;
`

const QSelectJobByID = `--sql d04cfd6d-c1dc-4065-bcea-de676c517f14
select id, user_id, status, target_count, completed_count, cost_per_item, params,
       coalesce(last_error, ''), refund_settled, started_at, completed_at, error_at, lease_until,
       created_at, updated_at
from generation_jobs
where id = $1::uuid
limit 1;
`

const QSelectJobForUser = `--sql c2c7b126-d954-4975-8b47-20762b0048f1
select id, user_id, status, target_count, completed_count, cost_per_item, params,
       coalesce(last_error, ''), refund_settled, started_at, completed_at, error_at, lease_until,
       created_at, updated_at
from generation_jobs
where id = $1::uuid
  and user_id = $2::uuid
limit 1;
`

const QMarkJobInProgress = `--sql 07eb4e2d-51e0-462f-803b-eaed703247ce
update generation_jobs
set status = 'IN_PROGRESS',
    started_at = coalesce(started_at, now()),
    lease_until = $2::timestamptz,
    updated_at = now()
where id = $1::uuid
  and status in ('PENDING', 'IN_PROGRESS');
`

// QUpdateJobProgress never lowers completed_count so checkpoints stay monotonic.
const QUpdateJobProgress = `--sql 63eda041-b7bd-4e98-afca-66318ec5ac48
update generation_jobs
set completed_count = greatest(completed_count, $2::int),
    status = 'IN_PROGRESS',
    updated_at = now()
where id = $1::uuid
  and status in ('PENDING', 'IN_PROGRESS');
`

const QMarkJobCompleted = `--sql ef552e88-86ae-4fbc-96b0-aba3e60eab54
update generation_jobs
set status = 'COMPLETED',
    completed_count = $2::int,
    completed_at = now(),
    last_error = null,
    lease_until = null,
    refund_settled = true,
    updated_at = now()
where id = $1::uuid
  and status in ('PENDING', 'IN_PROGRESS')
  and $2::int = target_count
returning id;
`

// QLockJobForFinish holds the job row until the terminal write commits.
// Artifact inserts take a share lock on the same row, so none can land between
// the recount and the status change.
const QLockJobForFinish = `--sql 46350d5b-c1fc-41a9-b2d5-ff80c7634963
select id
from generation_jobs
where id = $1::uuid
  and status in ('PENDING', 'IN_PROGRESS')
for update;
`

// QMarkJobFailed records the artifact count as persisted; it does nothing once
// every index is produced.
const QMarkJobFailed = `--sql 60f2bc84-02aa-48b5-80e7-58bc9ecabf75
with produced as (
  select count(*)::int as n
  from artifacts
  where job_id = $1::uuid
)
update generation_jobs j
set status = 'FAILED',
    completed_count = least(produced.n, j.target_count),
    error_at = now(),
    last_error = $2::text,
    updated_at = now()
from produced
where j.id = $1::uuid
  and j.status in ('PENDING', 'IN_PROGRESS')
  and produced.n < j.target_count
returning j.id;
`

const QMarkJobRefundSettled = `--sql a0f9d508-bbc7-44b5-a9c3-725ed814aabe
update generation_jobs
set refund_settled = true,
    lease_until = null,
    updated_at = now()
where id = $1::uuid
  and status = 'FAILED';
`

// QClaimNextJob hands out pending jobs, IN_PROGRESS jobs whose worker lease
// expired, and FAILED jobs whose refund was never settled. FAILED rows keep
// their status; only the lease is taken.
const QClaimNextJob = `--sql 51dacb31-3abd-48ba-8e8f-1d0b9732ec2c
with next_job as (
    select id
    from generation_jobs
    where status = 'PENDING'
       or (status = 'IN_PROGRESS' and (lease_until is null or lease_until < now()))
       or (status = 'FAILED' and refund_settled = false and (lease_until is null or lease_until < now()))
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update generation_jobs j
    set status = case when j.status = 'FAILED' then 'FAILED' else 'IN_PROGRESS' end,
        started_at = case when j.status = 'FAILED' then j.started_at else coalesce(j.started_at, now()) end,
        lease_until = now() + make_interval(secs => $1::int),
        updated_at = now()
    where j.id in (select id from next_job)
    returning j.id
)
select id from updated;
`

const QListStaleJobs = `--sql d95d9aa8-58ff-43fb-b223-9b21455e5175
select id, user_id, status, target_count, completed_count, cost_per_item, params,
       coalesce(last_error, ''), refund_settled, started_at, completed_at, error_at, lease_until,
       created_at, updated_at
from generation_jobs
where (status = 'IN_PROGRESS' and lease_until < now())
   or (status = 'FAILED' and refund_settled = false)
order by created_at asc
limit $1::int;
`

const QRequeueJob = `--sql 63a5fffa-7292-45c3-992e-4de4bc9f3173
update generation_jobs
set status = 'PENDING',
    lease_until = null,
    updated_at = now()
where id = $1::uuid
  and status = 'IN_PROGRESS'
returning id;
`

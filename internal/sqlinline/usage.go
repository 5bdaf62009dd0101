package sqlinline

const QInsertUsageEvent = `--sql 15a27a07-65c8-452e-ad64-d40cdbb5f03e
insert into usage_events(id, user_id, job_id, event_type, success, latency_ms, created_at, properties)
values (gen_random_uuid(), nullif($1::text, '')::uuid, nullif($2::text, '')::uuid, $3::text, $4::boolean, $5::int, now(), coalesce($6::jsonb, '{}'::jsonb));
`

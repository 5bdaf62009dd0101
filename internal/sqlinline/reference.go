package sqlinline

const QSelectReferenceSummary = `--sql f1bbf660-6c34-4e80-92d9-e6f3304ab08b
select summary
from reference_summaries
where source_id = $1::text
  and variant_key = $2::text
limit 1;
`

const QUpsertReferenceSummary = `--sql 3577dbcf-16d1-42c6-b6df-000d6a0e0cec
insert into reference_summaries(source_id, variant_key, summary, created_at, updated_at)
values ($1::text, $2::text, $3::text, now(), now())
on conflict (source_id, variant_key) do update
set summary = excluded.summary,
    updated_at = now();
`

package sqlinline

const QSelectIntegrationToken = `--sql 5cab2a0a-bf2e-4707-b6ac-889f4d3b1c6a
select token
from integration_tokens
where provider = $1::text
limit 1;
`

const QUpsertIntegrationToken = `--sql e3cc277f-b067-4607-9db5-37ab03fa1c5f
with incoming as (
    select
        $1::text as provider,
        $2::text as token,
        coalesce($3::jsonb, '{}'::jsonb) as properties
)
insert into integration_tokens (id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid(), (select provider from incoming), (select token from incoming), (select properties from incoming), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`

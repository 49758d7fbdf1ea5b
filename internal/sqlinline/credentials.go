package sqlinline

const QSelectIntegrationToken = `--sql fe2c5ffd-0d39-4c34-b762-83920e4c15f3
select token
from integration_tokens
where provider = $1::text
limit 1;
`

const QUpsertIntegrationToken = `--sql 0d6f45f2-05c5-46a7-9e6b-54d7f36b8f21
insert into integration_tokens (provider, token, properties, created_at, updated_at)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`

package sqlinline

const QInsertUsageEvent = `--sql 148b6d8c-9dda-4344-b679-f2cd8fc99ff9
insert into usage_events (id, user_id, request_id, event_type, success, latency_ms, created_at, properties)
values (gen_random_uuid(), $1::uuid, $2::uuid, $3::text, $4::boolean, $5::int, now(), coalesce($6::jsonb, '{}'::jsonb));
`

const QSelectUsage24h = `--sql cd2f1a32-c670-43d7-95ea-78612f687e5f
select event_type,
       count(*) as total,
       count(*) filter (where success) as succeeded,
       coalesce(avg(latency_ms) filter (where success), 0)::int as avg_latency_ms
from usage_events
where created_at >= now() - interval '24 hours'
group by event_type
order by event_type;
`

package sqlinline

const QInsertMaterial = `--sql f2bd3523-5063-4a75-acb3-f82bb37e49a2
insert into generated_materials (id, user_id, request_id, prompt, material, mode, provider, llm_used, latency_ms, created_at)
values (gen_random_uuid(), $1::uuid, $2::uuid, $3::text, $4::text, $5::text, nullif($6::text, ''), $7::boolean, $8::bigint, now())
returning id;
`

const QSelectRecentMaterials = `--sql b060c10e-76a7-4441-911c-5a9bf3428f8e
select id, prompt, material, mode, created_at
from generated_materials
where user_id = $1::uuid
order by created_at desc
limit $2::int;
`

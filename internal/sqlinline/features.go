package sqlinline

const QSelectUserFeature = `--sql 49c2aedc-2fcc-4af4-8cd6-577a87ebd9b9
select enabled
from user_features
where user_id = $1::uuid
  and feature_name = $2::text
limit 1;
`

const QSelectGlobalFeature = `--sql f625422e-77ce-4ca8-8738-bb5b757cff7b
select is_enabled
from feature_flags
where feature_name = $1::text
limit 1;
`

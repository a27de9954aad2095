package sqlinline

const QSelectDeviceKey = `--sql e9f7d168-0257-4086-9e6b-746670eef8fc
select api_key
from device_keys
where device_id = $1::text
  and provider = $2::text
limit 1;
`

const QUpsertDeviceKey = `--sql c619be14-c762-4b88-9173-29238c6eec1e
insert into device_keys (device_id, provider, api_key)
values ($1::text, $2::text, $3::text)
on conflict (device_id, provider) do update set
    api_key = excluded.api_key,
    updated_at = now();
`

const QDeleteDeviceKey = `--sql 2dd41420-e9d0-480b-817c-b8dda9eeeeec
delete from device_keys
where device_id = $1::text
  and provider = $2::text;
`

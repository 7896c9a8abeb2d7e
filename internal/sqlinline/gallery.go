package sqlinline

const QCreateGalleryTable = `--sql c98a083b-795a-4b78-a886-2986b286c853
create table if not exists gallery_entries (
  seq        bigserial primary key,
  kind       text not null default 'image',
  entry      jsonb not null,
  created_at timestamptz not null default now()
);
`

// QAppendGallery inserts a batch (arrays ordered oldest first) and trims the
// table in one statement. The delete runs against the pre-insert snapshot, so
// it keeps only the newest $4 minus batch-size existing rows.
const QAppendGallery = `--sql 861c00ee-0423-4a5e-b927-267235c414a2
with batch as (
  select kind, entry, created_at, ord
  from unnest($1::text[], $2::text[], $3::timestamptz[])
    with ordinality as b(kind, entry, created_at, ord)
), inserted as (
  insert into gallery_entries(kind, entry, created_at)
  select kind, entry::jsonb, created_at
  from batch
  order by ord
  returning seq
)
delete from gallery_entries
where seq not in (
  select seq from gallery_entries
  order by seq desc
  limit greatest($4::int - (select count(*) from inserted), 0)
);
`

const QListGallery = `--sql 86ab518c-a3e0-4cda-8d1a-e6b09fee0dcf
select entry
from gallery_entries
order by seq desc
limit $1::int;
`

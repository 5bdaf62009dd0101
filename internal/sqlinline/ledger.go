package sqlinline

const QSelectCreditBalance = `--sql ff7e4db8-0d70-4560-a1a7-88f3f05228e5
select coalesce((select balance from credit_balances where user_id = $1::uuid), 0)::bigint;
`

// QChargeCredits debits the balance and records the charge in one statement.
// Columns: already_charged, charged.
const QChargeCredits = `--sql 4784f24f-4bc3-4c35-91c7-2961340ff498
with
input as (
  select
    $1::uuid   as user_id,
    $2::bigint as amount,
    $3::text   as reference_type,
    $4::text   as reference_id
),
existing as (
  select l.id
  from credit_ledger l, input i
  where l.kind = 'charge'
    and l.reference_type = i.reference_type
    and l.reference_id = i.reference_id
),
debited as (
  update credit_balances b
  set balance = b.balance - i.amount,
      updated_at = now()
  from input i
  where b.user_id = i.user_id
    and b.balance >= i.amount
    and not exists (select 1 from existing)
  returning b.user_id
),
entry as (
  insert into credit_ledger(id, user_id, kind, amount, reference_type, reference_id, reason, created_at)
  select gen_random_uuid(), i.user_id, 'charge', i.amount, i.reference_type, i.reference_id, '', now()
  from input i
  where exists (select 1 from debited)
  returning id
)
select (select count(*) from existing)::int, (select count(*) from entry)::int;
`

// QRefundCredits credits the balance at most once per reference.
const QRefundCredits = `--sql 0968665c-6bea-4108-b882-e87ed86113b0
with
input as (
  select
    $1::uuid   as user_id,
    $2::bigint as amount,
    $3::text   as reference_type,
    $4::text   as reference_id,
    $5::text   as reason
),
existing as (
  select l.id
  from credit_ledger l, input i
  where l.kind = 'refund'
    and l.reference_type = i.reference_type
    and l.reference_id = i.reference_id
),
entry as (
  insert into credit_ledger(id, user_id, kind, amount, reference_type, reference_id, reason, created_at)
  select gen_random_uuid(), i.user_id, 'refund', i.amount, i.reference_type, i.reference_id, i.reason, now()
  from input i
  where not exists (select 1 from existing)
  returning user_id, amount
),
credited as (
  insert into credit_balances(user_id, balance, updated_at)
  select user_id, amount, now() from entry
  on conflict (user_id) do update
  set balance = credit_balances.balance + excluded.balance,
      updated_at = now()
  returning user_id
)
select (select count(*) from credited)::int;
`

const QGrantCredits = `--sql 86fc0ef0-786e-4a55-b541-8b8e7b593f24
with
entry as (
  insert into credit_ledger(id, user_id, kind, amount, reference_type, reference_id, reason, created_at)
  values (gen_random_uuid(), $1::uuid, 'grant', $2::bigint, 'manual', gen_random_uuid()::text, $3::text, now())
  returning user_id, amount
)
insert into credit_balances(user_id, balance, updated_at)
select user_id, amount, now() from entry
on conflict (user_id) do update
set balance = credit_balances.balance + excluded.balance,
    updated_at = now()
returning balance;
`

const QSelectLedgerEntries = `--sql 7eaf9e87-8946-4db8-9181-5666378d3581
select id, user_id, kind, amount, reference_type, reference_id, reason, created_at
from credit_ledger
where reference_type = $1::text
  and reference_id = $2::text
order by created_at asc;
`

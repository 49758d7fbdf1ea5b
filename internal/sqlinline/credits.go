package sqlinline

// Credit balances live in a single row per user. The debit is one conditional
// UPDATE so the balance check and the decrement are a single atomic statement;
// concurrent debits serialize on the row lock inside Postgres.

const QEnsureCreditBalance = `--sql b4c08326-d0a9-4795-8986-31c36a62f2e4
insert into credit_balances (user_id, balance, created_at, updated_at)
values ($1::uuid, $2::int, now(), now())
on conflict (user_id) do nothing;
`

const QDebitCredits = `--sql d8a4151c-4512-4d99-bc41-24a69d411c64
with debit as (
    update credit_balances
       set balance = balance - $2::int,
           updated_at = now()
     where user_id = $1::uuid
       and balance >= $2::int
    returning balance
)
select
    exists(select 1 from debit) as success,
    coalesce(
        (select balance from debit),
        (select balance from credit_balances where user_id = $1::uuid),
        0
    ) as balance;
`

const QRefundCredits = `--sql 86a2f72d-5fdb-4ee7-9600-28cf81884696
update credit_balances
   set balance = balance + $2::int,
       updated_at = now()
 where user_id = $1::uuid
returning balance;
`

const QGrantCredits = `--sql 3820908f-7c77-4b64-94c1-386899985121
insert into credit_balances (user_id, balance, created_at, updated_at)
values ($1::uuid, $2::int, now(), now())
on conflict (user_id) do update set
    balance = credit_balances.balance + excluded.balance,
    updated_at = now()
returning balance;
`

const QSelectCreditBalance = `--sql ca3374b6-3f55-45ce-8575-d261297d15d2
select balance
from credit_balances
where user_id = $1::uuid
limit 1;
`

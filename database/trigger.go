package database

import "gorm.io/gorm"

// The booking table carries a last-resort consistency trigger, translated
// from the production DDL: it aborts any write that would oversell a stock
// or drive a deposit balance negative, even when the write bypassed the
// application-level row locks (batch jobs, manual fixes).
const bookingTriggerDDL = `
CREATE OR REPLACE FUNCTION public.get_deposit_balance (deposit_id bigint, only_used_bookings boolean)
    RETURNS numeric
    AS $$
DECLARE
    deposit_amount numeric := (
        SELECT CASE WHEN ("expiration_date" > now() OR "expiration_date" IS NULL) THEN amount ELSE 0 END
        FROM deposits WHERE id = deposit_id
    );
    sum_bookings numeric;
BEGIN
    IF deposit_amount IS NULL
    THEN RAISE EXCEPTION 'the deposit was not found';
    END IF;

    SELECT
        COALESCE(SUM(amount * quantity), 0) INTO sum_bookings
    FROM
        bookings
    WHERE
        bookings.deposit_id = get_deposit_balance.deposit_id
        AND NOT bookings.status = 'CANCELLED'
        AND (NOT only_used_bookings OR bookings.status IN ('USED', 'REIMBURSED'));
    RETURN
        deposit_amount - sum_bookings;
    END;
$$
LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION public.get_wallet_balance (user_id bigint, only_used_bookings boolean)
    RETURNS numeric
    AS $$
DECLARE
    deposit_id bigint := (
        SELECT id FROM deposits
        WHERE deposits.user_id = get_wallet_balance.user_id
          AND ("expiration_date" > now() OR "expiration_date" IS NULL)
        ORDER BY id DESC LIMIT 1
    );
BEGIN
    RETURN
        CASE WHEN deposit_id IS NOT NULL THEN get_deposit_balance(deposit_id, only_used_bookings) ELSE 0 END;
END;
$$
LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION check_booking()
RETURNS TRIGGER AS $$
BEGIN
IF EXISTS (SELECT quantity FROM stocks WHERE id = NEW.stock_id AND quantity IS NOT NULL)
    AND (
        (SELECT quantity FROM stocks WHERE id = NEW.stock_id)
        <
        (SELECT SUM(quantity) FROM bookings WHERE stock_id = NEW.stock_id AND status != 'CANCELLED')
        )
    THEN RAISE EXCEPTION 'tooManyBookings'
                USING HINT = 'Number of bookings cannot exceed "stock.quantity"';
END IF;

IF (
    (
    -- A new booking must always be checked against the wallet.
    OLD IS NULL
    OR (
        -- On update, check the wallet when quantity or amount change.
        -- The backend never does that, but stay defensive.
        (NEW.quantity != OLD.quantity OR NEW.amount != OLD.amount)
        -- Otherwise only when UNcancelling: users with no credit left must
        -- still be able to cancel, and their bookings can be marked used
        -- or unused.
        OR (NEW.status != OLD.status AND OLD.status = 'CANCELLED' AND NEW.status != 'CANCELLED')
    )
    )
    AND (
        -- Free offers stay bookable with no deposit on file.
        (NEW.deposit_id IS NULL AND NEW.amount != 0)
        OR (NEW.deposit_id IS NOT NULL AND get_deposit_balance(NEW.deposit_id, false) < 0)
    )
)
THEN RAISE EXCEPTION 'insufficientFunds'
            USING HINT = 'The user does not have enough credit to book';
END IF;

RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS booking_update ON bookings;
CREATE CONSTRAINT TRIGGER booking_update
AFTER INSERT
OR UPDATE OF quantity, amount, status, user_id
ON bookings
FOR EACH ROW EXECUTE PROCEDURE check_booking();
`

func InstallBookingTrigger(db *gorm.DB) error {
	return db.Exec(bookingTriggerDDL).Error
}

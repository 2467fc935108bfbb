package postgres

import (
	"fmt"

	"github.com/lib/pq"
)

// sqlFuncEventStreamNotify creates the trigger function that notifies the channel named after the table
const sqlFuncEventStreamNotify = `DO LANGUAGE plpgsql $EXIST$
BEGIN
  IF (SELECT to_regprocedure('event_stream_notify()') IS NULL) THEN
    CREATE FUNCTION event_stream_notify ()
      RETURNS TRIGGER
    LANGUAGE plpgsql AS $$
    DECLARE
      channel text := TG_ARGV[0];
    BEGIN
      PERFORM (
        WITH payload AS
        (
          SELECT NEW.no, NEW.event_name, NEW.metadata ->> '_aggregate_id' AS aggregate_id
        )
        SELECT pg_notify(channel, row_to_json(payload)::text) FROM payload
      );
      RETURN NULL;
    END;
    $$;
  END IF;
END;
$EXIST$`

func sqlTriggerEventStreamNotifyTemplate(eventStreamTable string) string {
	triggerName := fmt.Sprintf("%s_notify", eventStreamTable)
	/* #nosec G201 */
	return fmt.Sprintf(
		`CREATE TRIGGER %[1]s
  AFTER INSERT
  ON %[2]s
  FOR EACH ROW
EXECUTE PROCEDURE event_stream_notify(%[3]s);`,
		pq.QuoteIdentifier(triggerName),
		pq.QuoteIdentifier(eventStreamTable),
		pq.QuoteLiteral(eventStreamTable),
	)
}

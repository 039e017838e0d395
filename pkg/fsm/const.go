package fsm

// Wizard phases tracked by the per-session FSM. The fine-grained field
// position lives in Step; the FSM guards the coarse transitions that must
// never run backwards.
const (
	StateCollecting       = "collecting"
	StateConfirm          = "confirm"
	StateConfirmOverwrite = "confirm_overwrite"
)

const (
	EventFieldsComplete = "fields_complete"
	EventDuplicateFound = "duplicate_found"
)

const (
	CommandStart  = "start"
	CommandLink   = "link"
	CommandReport = "report"
	CommandCancel = "cancel"
)

const (
	CallbackDatePrefix   = "repdate:"
	CallbackActionPrefix = "repact:"
)

const (
	DateToday           = "today"
	DateYesterday       = "yesterday"
	DateBeforeYesterday = "before_yesterday"
)

const (
	ActionSubmit    = "submit"
	ActionOverwrite = "overwrite"
	ActionCancel    = "cancel"
)

// RateLimitActionRegister is the action name reported to the remote limiter.
const RateLimitActionRegister = "register"

const (
	msgGreeting = "Привет! Это бот ежедневных отчётов.\n\n" +
		"/link — привязать чат к аккаунту по коду\n" +
		"/report — заполнить отчёт за день\n" +
		"/cancel — отменить текущий диалог"
	msgUnknownCommand   = "Неизвестная команда. /link, /report или /cancel."
	msgNoActiveDialog   = "Сейчас нет активного диалога (или он истёк). /link — привязать аккаунт, /report — заполнить отчёт."
	msgInternalError    = "Сервис временно недоступен. Попробуйте позже."
	msgNothingToCancel  = "Нечего отменять."
	msgLinkCancelled    = "Привязка отменена."
	msgReportCancelled  = "Ввод отчёта отменён."
	msgNotLinked        = "Сначала привяжите аккаунт: /link"
	msgAskCode          = "Введите код привязки из личного кабинета."
	msgCodeNotFound     = "Код не найден или истёк."
	msgLinkSuccess      = "✅ Аккаунт «%s» привязан! Теперь можно отправлять отчёты: /report"
	msgAlreadyLinked    = "Вы уже привязаны к аккаунту «%s»."
	msgThrottled        = "Слишком много запросов. Попробуйте позже."
	msgLockedOut        = "Слишком много неверных попыток. Попробуйте через %s."
	msgCodeMalformed    = "Код должен состоять из %d цифр."
	msgAttemptsLeft     = "Осталось попыток: %d."
	msgChooseDate       = "За какой день отчёт?"
	msgUseDateButtons   = "Пожалуйста, выберите дату кнопками выше."
	msgStaleButton      = "⚠️ Кнопка устарела."
	msgReportSaved      = "✅ Отчёт за %s сохранён!"
	msgOverwriteWarning = "За %s уже есть отчёт. Перезаписать его?"
	msgCancelled        = "Отменено."
	msgConfirmPrompt    = "Проверьте данные и подтвердите отправку."
	msgCountNotANumber  = "Нужно целое неотрицательное число. Попробуйте ещё раз."
	msgCountNegative    = "Число не может быть отрицательным."
	msgCountTooLarge    = "Слишком большое значение. Проверьте ввод."
	msgAmountInvalid    = "Нужна сумма, например 12500 или 12500,50."
	msgAmountNegative   = "Сумма не может быть отрицательной."
	msgAmountTooLarge   = "Слишком большая сумма. Проверьте ввод."
	msgReasonEmpty      = "Причина не должна быть пустой."
)

const (
	btnToday           = "Сегодня"
	btnYesterday       = "Вчера"
	btnBeforeYesterday = "Позавчера"
	btnSubmit          = "✅ Отправить"
	btnCancel          = "❌ Отмена"
	btnOverwrite       = "🔁 Перезаписать"
)
